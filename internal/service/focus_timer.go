package service

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/driftlog/internal/db"
	"gorm.io/gorm"
)

// 计时器状态机：idle -> work -> done -> break -> idle。
// done 只能由工作阶段自然归零进入，休息阶段由用户显式开启。
// 暂停是独立的开关，不改变所处阶段。
const (
	TimerStateIdle  = "idle"
	TimerStateWork  = "work"
	TimerStateDone  = "done"
	TimerStateBreak = "break"
)

// 内置的三种专注时段配置（工作分钟 / 休息分钟）。
const (
	SessionTypeFocusSprint  = "focus_sprint"
	SessionTypeBodyDoubling = "body_doubling"
	SessionTypeQuickWin     = "quick_win"
)

type sessionPreset struct {
	WorkMinutes  int
	BreakMinutes int
}

var sessionPresets = map[string]sessionPreset{
	SessionTypeFocusSprint:  {WorkMinutes: 25, BreakMinutes: 5},
	SessionTypeBodyDoubling: {WorkMinutes: 50, BreakMinutes: 10},
	SessionTypeQuickWin:     {WorkMinutes: 10, BreakMinutes: 3},
}

// ErrUnknownSessionType 表示传入了未定义的时段类型。
var ErrUnknownSessionType = errors.New("unknown focus session type")

// TimerStatus 为某一时刻计时器的只读快照。
// Progress 为当前阶段的完成比例，空闲时恒为 0。
type TimerStatus struct {
	State            string  `json:"state"`
	Paused           bool    `json:"paused"`
	SessionType      string  `json:"session_type"`
	RemainingSeconds int     `json:"remaining_seconds"`
	TotalSeconds     int     `json:"total_seconds"`
	Progress         float64 `json:"progress"`
	WorkMinutes      int     `json:"work_minutes"`
	BreakMinutes     int     `json:"break_minutes"`
}

// FocusTimer 是单实例的专注计时器。
// 所有状态访问都在互斥锁内完成；内部走表协程持有启动时的
// generation 序号，Reset 或重新 Start 后过期协程的 tick 会被丢弃，
// 因此旧会话的残留 tick 不可能推进新会话。
type FocusTimer struct {
	mu sync.Mutex

	state            string
	paused           bool
	sessionType      string
	remainingSeconds int
	totalSeconds     int
	workMinutes      int
	breakMinutes     int
	generation       uint64
	tickInterval     time.Duration

	// 工作阶段自然归零时回调，只有这条路径落库
	onWorkComplete func(sessionType string, workMinutes, breakMinutes int)
}

// NewFocusTimer 构造空闲状态的计时器。
func NewFocusTimer(onWorkComplete func(sessionType string, workMinutes, breakMinutes int)) *FocusTimer {
	return &FocusTimer{
		state:          TimerStateIdle,
		tickInterval:   time.Second,
		onWorkComplete: onWorkComplete,
	}
}

// Start 以指定时段类型进入工作阶段。
// 计时器非空闲时后启动者获胜：旧会话被直接丢弃且不落库。
func (t *FocusTimer) Start(sessionType string) (TimerStatus, error) {
	preset, ok := sessionPresets[sessionType]
	if !ok {
		return TimerStatus{}, ErrUnknownSessionType
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = TimerStateWork
	t.paused = false
	t.sessionType = sessionType
	t.workMinutes = preset.WorkMinutes
	t.breakMinutes = preset.BreakMinutes
	t.remainingSeconds = preset.WorkMinutes * 60
	t.totalSeconds = t.remainingSeconds
	t.generation++

	go t.run(t.generation)
	return t.statusLocked(), nil
}

// Pause 暂停倒计时，阶段不变。仅工作与休息阶段有效。
func (t *FocusTimer) Pause() TimerStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == TimerStateWork || t.state == TimerStateBreak {
		t.paused = true
	}
	return t.statusLocked()
}

// Resume 恢复倒计时。
func (t *FocusTimer) Resume() TimerStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = false
	return t.statusLocked()
}

// StartBreak 开启休息阶段。工作完成（done）后由用户显式调用；
// 也允许从工作阶段提前跳入休息，这条路径工作没有走完，不落库。
// 空闲或已在休息中是空操作。
func (t *FocusTimer) StartBreak() TimerStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == TimerStateDone || t.state == TimerStateWork {
		t.state = TimerStateBreak
		t.paused = false
		t.remainingSeconds = t.breakMinutes * 60
		t.totalSeconds = t.remainingSeconds
		t.generation++
		go t.run(t.generation)
	}
	return t.statusLocked()
}

// Reset 丢弃当前会话并回到空闲，不落库。
func (t *FocusTimer) Reset() TimerStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
	return t.statusLocked()
}

// Status 返回当前快照。
func (t *FocusTimer) Status() TimerStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.statusLocked()
}

// Progress 返回当前阶段的完成比例。
func (t *FocusTimer) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progressLocked()
}

// Tick 推进一秒。工作阶段自然归零时触发落库回调并进入 done，
// 休息阶段归零回到空闲。暂停、空闲或 done 状态下是空操作。
func (t *FocusTimer) Tick() TimerStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tickLocked()
	return t.statusLocked()
}

func (t *FocusTimer) tickLocked() {
	if t.paused || (t.state != TimerStateWork && t.state != TimerStateBreak) {
		return
	}

	t.remainingSeconds--
	if t.remainingSeconds > 0 {
		return
	}

	switch t.state {
	case TimerStateWork:
		if t.onWorkComplete != nil {
			t.onWorkComplete(t.sessionType, t.workMinutes, t.breakMinutes)
		}
		t.state = TimerStateDone
		t.remainingSeconds = 0
	case TimerStateBreak:
		t.resetLocked()
	}
}

func (t *FocusTimer) resetLocked() {
	t.state = TimerStateIdle
	t.paused = false
	t.sessionType = ""
	t.remainingSeconds = 0
	t.totalSeconds = 0
	t.workMinutes = 0
	t.breakMinutes = 0
	t.generation++
}

func (t *FocusTimer) progressLocked() float64 {
	if t.totalSeconds <= 0 {
		return 0
	}
	return 1 - float64(t.remainingSeconds)/float64(t.totalSeconds)
}

func (t *FocusTimer) statusLocked() TimerStatus {
	return TimerStatus{
		State:            t.state,
		Paused:           t.paused,
		SessionType:      t.sessionType,
		RemainingSeconds: t.remainingSeconds,
		TotalSeconds:     t.totalSeconds,
		Progress:         t.progressLocked(),
		WorkMinutes:      t.workMinutes,
		BreakMinutes:     t.breakMinutes,
	}
}

// run 每秒推进一次，直到会话换代或进入不再走表的状态。
func (t *FocusTimer) run(generation uint64) {
	ticker := time.NewTicker(t.tickInterval)
	defer ticker.Stop()

	for range ticker.C {
		t.mu.Lock()
		if generation != t.generation {
			t.mu.Unlock()
			return
		}
		t.tickLocked()
		stopped := t.state == TimerStateIdle || t.state == TimerStateDone
		t.mu.Unlock()
		if stopped {
			return
		}
	}
}

// FocusService 在计时器之上负责会话持久化与历史查询。
type FocusService struct {
	db    *gorm.DB
	timer *FocusTimer
}

// NewFocusService 构造 FocusService，并把落库回调接到计时器上。
func NewFocusService(gdb *gorm.DB) *FocusService {
	s := &FocusService{db: gdb}
	s.timer = NewFocusTimer(s.recordSession)
	return s
}

// Timer 暴露底层计时器。
func (s *FocusService) Timer() *FocusTimer {
	return s.timer
}

func (s *FocusService) recordSession(sessionType string, workMinutes, breakMinutes int) {
	session := db.FocusSession{
		LogDate:         Today(),
		DurationMinutes: workMinutes,
		BreakMinutes:    breakMinutes,
		Completed:       true,
		SessionType:     sessionType,
	}
	if err := s.db.Create(&session).Error; err != nil {
		// 计时器回调里无法向上返回错误，只能记录后继续
		log.Printf("[FOCUS] failed to record session: %v", err)
	}
}

// ListSessions 返回按日期倒序的专注会话历史。
func (s *FocusService) ListSessions(limit int) ([]db.FocusSession, error) {
	if limit <= 0 {
		limit = analyticsSessionFetchLimit
	}

	var sessions []db.FocusSession
	if err := s.db.Order("log_date DESC, id DESC").Limit(limit).Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list focus sessions: %w", err)
	}
	return sessions, nil
}
