package service

import (
	"context"
	"errors"
	"time"

	"github.com/zolffix/internal/streak"
)

var errSkipWrite = errors.New("skip write")

// Clock 返回当前时间，测试中可替换
type Clock func() time.Time

type locationKey struct{}

// WithLocation 把用户时区放入 ctx，"今天" 按该时区计算
func WithLocation(ctx context.Context, loc *time.Location) context.Context {
	if loc == nil {
		return ctx
	}
	return context.WithValue(ctx, locationKey{}, loc)
}

// LocationFrom 取出 ctx 中的时区，缺省时返回 fallback
func LocationFrom(ctx context.Context, fallback *time.Location) *time.Location {
	if loc, ok := ctx.Value(locationKey{}).(*time.Location); ok && loc != nil {
		return loc
	}
	if fallback == nil {
		return time.UTC
	}
	return fallback
}

// localNow 返回用户时区下的当前时间
func localNow(ctx context.Context, clock Clock, fallback *time.Location) time.Time {
	return clock().In(LocationFrom(ctx, fallback))
}

// TodayFor 返回用户时区下的今天
func TodayFor(ctx context.Context, clock Clock, fallback *time.Location) streak.Day {
	return streak.DayOf(localNow(ctx, clock, fallback))
}
