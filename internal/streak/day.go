package streak

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// DayLayout 是日历日的序列化格式
const DayLayout = "2006-01-02"

// Day 表示一个不含时间分量的日历日。
// 日期运算统一在 UTC 上按年月日进行，避免夏令时切换导致跳日或重复。
type Day struct {
	year  int
	month time.Month
	day   int
}

// DayOf 返回 t 在其自身时区中的日历日
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{year: y, month: m, day: d}
}

// NewDay 构造日历日，越界的月/日会按 time.Date 规则进位
func NewDay(year int, month time.Month, day int) Day {
	return DayOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// ParseDay 解析 YYYY-MM-DD 格式的日期
func ParseDay(raw string) (Day, error) {
	t, err := time.Parse(DayLayout, strings.TrimSpace(raw))
	if err != nil {
		return Day{}, fmt.Errorf("parse day %q: %w", raw, err)
	}
	return DayOf(t), nil
}

// Today 返回 now 所在时区的当天
func Today(now time.Time, loc *time.Location) Day {
	if loc != nil {
		now = now.In(loc)
	}
	return DayOf(now)
}

func (d Day) civil() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// IsZero 报告是否为零值
func (d Day) IsZero() bool {
	return d == Day{}
}

func (d Day) Year() int { return d.year }

func (d Day) Month() time.Month { return d.month }

// Date 返回月内的日
func (d Day) Date() int { return d.day }

// Weekday 返回该日是星期几
func (d Day) Weekday() time.Weekday { return d.civil().Weekday() }

// AddDays 按日历日偏移 n 天
func (d Day) AddDays(n int) Day {
	return DayOf(time.Date(d.year, d.month, d.day+n, 0, 0, 0, 0, time.UTC))
}

// DaysUntil 返回从 d 到 other 相差的整天数，other 在前时为负数
func (d Day) DaysUntil(other Day) int {
	return int(other.civil().Sub(d.civil()) / (24 * time.Hour))
}

// Compare 与 cmp.Compare 语义一致
func (d Day) Compare(other Day) int {
	return d.civil().Compare(other.civil())
}

// Before 报告 d 是否早于 other
func (d Day) Before(other Day) bool {
	return d.Compare(other) < 0
}

// After 报告 d 是否晚于 other
func (d Day) After(other Day) bool {
	return d.Compare(other) > 0
}

// In 返回该日在 loc 时区的零点
func (d Day) In(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, loc)
}

func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return d.civil().Format(DayLayout)
}

// MarshalText implements encoding.TextMarshaler.
func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Day) UnmarshalText(text []byte) error {
	if len(strings.TrimSpace(string(text))) == 0 {
		*d = Day{}
		return nil
	}
	parsed, err := ParseDay(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaySet 是日历日集合，插入顺序无意义，重复日期自动合并
type DaySet map[Day]struct{}

// NewDaySet 由若干日期构造集合，零值日期会被忽略
func NewDaySet(days ...Day) DaySet {
	set := make(DaySet, len(days))
	for _, d := range days {
		if d.IsZero() {
			continue
		}
		set[d] = struct{}{}
	}
	return set
}

// Has 报告集合是否包含 d
func (s DaySet) Has(d Day) bool {
	_, ok := s[d]
	return ok
}

// Clone 返回一份独立的拷贝，nil 集合返回空集合
func (s DaySet) Clone() DaySet {
	out := make(DaySet, len(s))
	for d := range s {
		out[d] = struct{}{}
	}
	return out
}

// Toggle 返回翻转 d 之后的新集合：存在则移除，不存在则加入
func (s DaySet) Toggle(d Day) DaySet {
	out := s.Clone()
	if out.Has(d) {
		delete(out, d)
	} else if !d.IsZero() {
		out[d] = struct{}{}
	}
	return out
}

// Sorted 返回升序排列的日期
func (s DaySet) Sorted() []Day {
	days := make([]Day, 0, len(s))
	for d := range s {
		days = append(days, d)
	}
	slices.SortFunc(days, Day.Compare)
	return days
}

// Latest 返回集合中最近的一天
func (s DaySet) Latest() (Day, bool) {
	var latest Day
	found := false
	for d := range s {
		if !found || d.After(latest) {
			latest = d
			found = true
		}
	}
	return latest, found
}

// Equal 报告两个集合是否包含相同的日期
func (s DaySet) Equal(other DaySet) bool {
	if len(s) != len(other) {
		return false
	}
	for d := range s {
		if !other.Has(d) {
			return false
		}
	}
	return true
}

// Strings 返回升序的 YYYY-MM-DD 字符串
func (s DaySet) Strings() []string {
	days := s.Sorted()
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, d.String())
	}
	return out
}

// MarshalJSON 以升序字符串数组输出
func (s DaySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON 读取字符串数组，无法解析的条目直接丢弃
func (s *DaySet) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode day set: %w", err)
	}

	set := make(DaySet, len(raw))
	for _, item := range raw {
		d, err := ParseDay(item)
		if err != nil {
			continue
		}
		set[d] = struct{}{}
	}
	*s = set
	return nil
}
