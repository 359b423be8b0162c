package service

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/droplog/internal/db"
	"github.com/droplog/internal/storage"
	"github.com/google/uuid"
)

const dateKeyFormat = "2006-01-02"

// EventType 标识追踪器对外发出的事件类型。
type EventType string

const (
	// EventGoalReached 表示当日总量首次越过目标（边沿触发，可重复越过）。
	EventGoalReached EventType = "goal_reached"
	// EventExactHit 表示一次记录使当日总量恰好落在目标值上。
	EventExactHit EventType = "exact_hit"
	// EventStateChanged 表示一次有效的状态变更。
	EventStateChanged EventType = "state_changed"
)

// TrackerEvent 是发给订阅方（如庆祝通知层）的事件载荷。
type TrackerEvent struct {
	Type       EventType
	Target     int
	TodayTotal int
}

// AddResult 描述一次 AddWaterEntry 调用的结果，供意图层反馈给界面。
type AddResult struct {
	Added       bool
	Entry       WaterEntry
	TodayTotal  int
	GoalReached bool
	GoalCrossed bool
	ExactHit    bool
}

// TrackerService 是追踪状态引擎：持有目标、杯量目录、历史与当日聚合，
// 处理全部变更意图，并在每次变更后同步持久化到 Store。
// 意图按到达顺序串行处理；事件在状态锁之外同步派发。
type TrackerService struct {
	mu        sync.Mutex
	store     storage.Store
	now       func() time.Time
	listeners []func(TrackerEvent)

	dailyTarget int
	cupSizes    []CupSize
	selectedID  string
	history     []DailyRecord
	todayTotal  int
	goalReached bool
	lastEntryID int64
}

// NewTrackerService 构造引擎并从 store 加载持久化状态。
// 缺失或无法解析的键按键回退到默认值，加载永不失败。
func NewTrackerService(store storage.Store) *TrackerService {
	return newTrackerService(store, time.Now)
}

// newTrackerService 允许注入时钟，便于测试跨日与时间相关行为。
func newTrackerService(store storage.Store, now func() time.Time) *TrackerService {
	s := &TrackerService{
		store:      store,
		now:        now,
		selectedID: defaultSelectedCupID,
	}
	s.loadState()
	return s
}

// Subscribe 注册事件监听器。监听器在变更完成后同步调用。
func (s *TrackerService) Subscribe(fn func(TrackerEvent)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// AddWaterEntry 按当前选中的杯量记录一次饮水。
// 选中杯量无法解析时不做任何变更（软校验，不报错）。
func (s *TrackerService) AddWaterEntry() AddResult {
	s.mu.Lock()

	cup, ok := s.resolveSelectedLocked()
	if !ok {
		result := AddResult{TodayTotal: s.todayTotal, GoalReached: s.goalReached}
		s.mu.Unlock()
		return result
	}

	today := s.currentDayLocked()
	entry := WaterEntry{
		ID:        s.nextEntryIDLocked(),
		Amount:    cup.Size,
		Timestamp: s.now().UnixMilli(),
		CupSize:   cup.Size,
	}

	idx := s.recordIndexLocked(today)
	if idx < 0 {
		s.history = append(s.history, DailyRecord{Date: today})
		idx = len(s.history) - 1
	}
	s.history[idx].Entries = append(s.history[idx].Entries, entry)
	s.history[idx].Total = sumEntries(s.history[idx].Entries)
	s.todayTotal = s.history[idx].Total

	s.persistLocked()

	var events []TrackerEvent
	crossed := s.evaluateGoalLocked(&events)
	exact := s.todayTotal == s.dailyTarget
	if exact {
		events = append(events, TrackerEvent{Type: EventExactHit, Target: s.dailyTarget, TodayTotal: s.todayTotal})
	}
	events = append(events, TrackerEvent{Type: EventStateChanged, Target: s.dailyTarget, TodayTotal: s.todayTotal})

	result := AddResult{
		Added:       true,
		Entry:       entry,
		TodayTotal:  s.todayTotal,
		GoalReached: s.goalReached,
		GoalCrossed: crossed,
		ExactHit:    exact,
	}
	s.mu.Unlock()

	s.emit(events)
	return result
}

// SetDailyTarget 替换每日目标并按新目标重新判定达标状态。
// 历史总量与目标无关，不做任何回溯重算；非正值不做任何变更。
func (s *TrackerService) SetDailyTarget(target int) {
	if target <= 0 {
		return
	}

	s.mu.Lock()
	s.dailyTarget = target
	s.persistLocked()

	var events []TrackerEvent
	s.evaluateGoalLocked(&events)
	events = append(events, TrackerEvent{Type: EventStateChanged, Target: s.dailyTarget, TodayTotal: s.todayTotal})
	s.mu.Unlock()

	s.emit(events)
}

// SetSelectedCupSize 更新选中的杯量引用。
// 引用是否可解析在记录时才检查，与原有行为保持一致。
func (s *TrackerService) SetSelectedCupSize(id string) {
	s.mu.Lock()
	s.selectedID = id
	events := []TrackerEvent{{Type: EventStateChanged, Target: s.dailyTarget, TodayTotal: s.todayTotal}}
	s.mu.Unlock()

	s.emit(events)
}

// AddCustomCupSize 追加一个自定义杯量，标签按 "<name> (<size>ml)" 组合。
// 非正容量或空白名称不做任何变更。
func (s *TrackerService) AddCustomCupSize(size int, label string) {
	name := strings.TrimSpace(label)
	if size <= 0 || name == "" {
		return
	}

	cup := CupSize{
		ID:    uuid.NewString(),
		Size:  size,
		Label: fmt.Sprintf("%s (%dml)", name, size),
	}

	s.mu.Lock()
	s.cupSizes = append(s.cupSizes, cup)
	s.persistLocked()
	events := []TrackerEvent{{Type: EventStateChanged, Target: s.dailyTarget, TodayTotal: s.todayTotal}}
	s.mu.Unlock()

	s.emit(events)
}

// RemoveCupSize 删除指定杯量。若删除的是当前选中项，选择将悬空，
// 后续 AddWaterEntry 静默失败，直到重新选择。
func (s *TrackerService) RemoveCupSize(id string) {
	s.mu.Lock()

	kept := s.cupSizes[:0]
	removed := false
	for _, cup := range s.cupSizes {
		if cup.ID == id {
			removed = true
			continue
		}
		kept = append(kept, cup)
	}
	s.cupSizes = kept

	if !removed {
		s.mu.Unlock()
		return
	}

	s.persistLocked()
	events := []TrackerEvent{{Type: EventStateChanged, Target: s.dailyTarget, TodayTotal: s.todayTotal}}
	s.mu.Unlock()

	s.emit(events)
}

// DailyTarget 返回当前每日目标（毫升）。
func (s *TrackerService) DailyTarget() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dailyTarget
}

// CupSizes 返回杯量目录的副本，顺序为插入顺序。
func (s *TrackerService) CupSizes() []CupSize {
	s.mu.Lock()
	defer s.mu.Unlock()
	cups := make([]CupSize, len(s.cupSizes))
	copy(cups, s.cupSizes)
	return cups
}

// SelectedCupSizeID 返回当前选中的杯量 ID（可能悬空）。
func (s *TrackerService) SelectedCupSizeID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

// History 返回历史记录的深副本，存储顺序（按天首次记录的顺序）。
func (s *TrackerService) History() []DailyRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]DailyRecord, len(s.history))
	for i, record := range s.history {
		entries := make([]WaterEntry, len(record.Entries))
		copy(entries, record.Entries)
		record.Entries = entries
		history[i] = record
	}
	return history
}

// TodayTotal 返回当日累计饮水量（毫升）。
func (s *TrackerService) TodayTotal() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.todayTotal
}

// GoalReached 返回当日是否已达标。
func (s *TrackerService) GoalReached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goalReached
}

// loadState 从存储加载三个键，缺失或损坏的键回退到默认值，
// 解析成功的数据经过规范化以恢复聚合与唯一性不变量。
func (s *TrackerService) loadState() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dailyTarget = DefaultDailyTarget
	if raw, ok := s.store.Get(db.StorageKeyDailyTarget); ok {
		if target, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && target > 0 {
			s.dailyTarget = target
		}
	}

	s.cupSizes = defaultCupSizes()
	if raw, ok := s.store.Get(db.StorageKeyCupSizes); ok {
		var cups []CupSize
		if err := json.Unmarshal([]byte(raw), &cups); err == nil {
			s.cupSizes = normalizeCupSizes(cups)
		} else {
			log.Printf("tracker: malformed cup sizes, using defaults: %v", err)
		}
	}

	s.history = nil
	if raw, ok := s.store.Get(db.StorageKeyHistory); ok {
		var history []DailyRecord
		if err := json.Unmarshal([]byte(raw), &history); err == nil {
			s.history = normalizeHistory(history)
		} else {
			log.Printf("tracker: malformed history, starting empty: %v", err)
		}
	}

	for _, record := range s.history {
		for _, entry := range record.Entries {
			if id, err := strconv.ParseInt(entry.ID, 10, 64); err == nil && id > s.lastEntryID {
				s.lastEntryID = id
			}
		}
	}

	today := s.currentDayLocked()
	s.todayTotal = 0
	if idx := s.recordIndexLocked(today); idx >= 0 {
		s.todayTotal = s.history[idx].Total
	}

	s.evaluateGoalLocked(nil)
}

// persistLocked 将三个键作为独立 blob 写入存储，尽力而为。
func (s *TrackerService) persistLocked() {
	s.store.Set(db.StorageKeyDailyTarget, strconv.Itoa(s.dailyTarget))

	cups, err := json.Marshal(s.cupSizes)
	if err != nil {
		log.Printf("tracker: marshal cup sizes: %v", err)
	} else {
		s.store.Set(db.StorageKeyCupSizes, string(cups))
	}

	history, err := json.Marshal(s.history)
	if err != nil {
		log.Printf("tracker: marshal history: %v", err)
	} else {
		s.store.Set(db.StorageKeyHistory, string(history))
	}
}

// evaluateGoalLocked 执行达标状态机，返回本次是否发生 false→true 越过。
// 越过时向 events 追加一条 goal_reached 事件；true→false 静默回落。
func (s *TrackerService) evaluateGoalLocked(events *[]TrackerEvent) bool {
	if s.todayTotal >= s.dailyTarget {
		if !s.goalReached {
			s.goalReached = true
			if events != nil {
				*events = append(*events, TrackerEvent{Type: EventGoalReached, Target: s.dailyTarget, TodayTotal: s.todayTotal})
			}
			return true
		}
		return false
	}

	if s.goalReached {
		s.goalReached = false
	}
	return false
}

// currentDayLocked 是当前自然日键的唯一入口，每个操作只调用一次，
// 避免操作跨越日界时出现偏差。
func (s *TrackerService) currentDayLocked() string {
	return s.now().Format(dateKeyFormat)
}

func (s *TrackerService) recordIndexLocked(date string) int {
	for i, record := range s.history {
		if record.Date == date {
			return i
		}
	}
	return -1
}

func (s *TrackerService) resolveSelectedLocked() (CupSize, bool) {
	for _, cup := range s.cupSizes {
		if cup.ID == s.selectedID {
			return cup, true
		}
	}
	return CupSize{}, false
}

// nextEntryIDLocked 生成基于毫秒时间戳的单调递增 ID。
// 同一毫秒内的连续记录在上一个 ID 基础上递增，保持创建顺序。
func (s *TrackerService) nextEntryIDLocked() string {
	id := s.now().UnixMilli()
	if id <= s.lastEntryID {
		id = s.lastEntryID + 1
	}
	s.lastEntryID = id
	return strconv.FormatInt(id, 10)
}

func (s *TrackerService) emit(events []TrackerEvent) {
	if len(events) == 0 {
		return
	}

	s.mu.Lock()
	listeners := make([]func(TrackerEvent), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, event := range events {
		for _, fn := range listeners {
			fn(event)
		}
	}
}

func sumEntries(entries []WaterEntry) int {
	total := 0
	for _, entry := range entries {
		total += entry.Amount
	}
	return total
}
