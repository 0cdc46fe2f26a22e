// Package streak 计算习惯的连续完成天数。
package streak

import "time"

// Compute 返回截至 now 的当前连胜天数。
//
// 最近一次完成距今超过一天视为中断，返回 0；距今恰好一天（昨天）仍计入，
// 这样在今天打卡之前看到的仍是昨天的连胜。其余情况从最近一天起逐日回溯，
// 遇到第一天缺失即停止。
func Compute(dates DaySet, now time.Time) int {
	if len(dates) == 0 {
		return 0
	}

	today := DayOf(now)
	latest, _ := dates.Latest()
	if latest.DaysUntil(today) > 1 {
		return 0
	}

	count := 0
	for d := latest; dates.Has(d); d = d.AddDays(-1) {
		count++
	}
	return count
}

// Longest 返回集合中任意位置出现过的最长连续天数
func Longest(dates DaySet) int {
	days := dates.Sorted()

	longest, run := 0, 0
	for i, d := range days {
		if i > 0 && days[i-1].AddDays(1) == d {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}
	return longest
}
