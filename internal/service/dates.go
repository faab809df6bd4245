package service

import "time"

// dateFormat 为全局统一的日历日期格式，所有实体只存储本地日历日，不携带时区。
const dateFormat = "2006-01-02"

const (
	// TimeOfDayMorning 上午时段（0-11 点）。
	TimeOfDayMorning = "morning"
	// TimeOfDayAfternoon 下午时段（12-16 点）。
	TimeOfDayAfternoon = "afternoon"
	// TimeOfDayEvening 傍晚时段（17-20 点）。
	TimeOfDayEvening = "evening"
	// TimeOfDayNight 夜间时段（21-23 点）。
	TimeOfDayNight = "night"
)

var timeOfDayBuckets = []string{TimeOfDayMorning, TimeOfDayAfternoon, TimeOfDayEvening, TimeOfDayNight}

// FormatDate 将时间截断为本地日历日期字符串。
func FormatDate(t time.Time) string {
	return t.Format(dateFormat)
}

// Today 返回本地时钟下的今日日期字符串。
func Today() string {
	return FormatDate(time.Now())
}

// TimeOfDayForHour 根据打卡时刻推导时间段。
func TimeOfDayForHour(hour int) string {
	switch {
	case hour < 12:
		return TimeOfDayMorning
	case hour < 17:
		return TimeOfDayAfternoon
	case hour < 21:
		return TimeOfDayEvening
	default:
		return TimeOfDayNight
	}
}

// shiftDate 在日历日期字符串上做天数偏移，解析失败时原样返回。
func shiftDate(date string, days int) string {
	t, err := time.ParseInLocation(dateFormat, date, time.Local)
	if err != nil {
		return date
	}
	return FormatDate(t.AddDate(0, 0, days))
}
