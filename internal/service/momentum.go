package service

import "github.com/driftlog/internal/db"

// momentumLookbackDays 限制回溯窗口，超出窗口视为没有更早的连胜数据。
const momentumLookbackDays = 60

// MomentumDays 计算动量天数：从 today 起向前逐日回溯，
// 只要当日所有习惯的打卡总数大于零就累加，遇到第一个空缺即停止。
// 这是一条"软性"连胜：断档只会中断计数，不做任何额外惩罚。
// today 当天没有任何打卡时直接返回 0，不再向前回溯。
func MomentumDays(logs []db.HabitLog, today string) int {
	if len(logs) == 0 {
		return 0
	}

	totals := make(map[string]int, len(logs))
	for _, log := range logs {
		count := log.Count
		if count <= 0 {
			count = 1
		}
		totals[log.LogDate] += count
	}

	if totals[today] == 0 {
		return 0
	}

	days := 1
	for i := 1; i < momentumLookbackDays; i++ {
		if totals[shiftDate(today, -i)] == 0 {
			break
		}
		days++
	}

	return days
}
