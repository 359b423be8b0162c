package handler

import (
	"net/http"
	"sort"

	"github.com/droplog/internal/service"
	"github.com/gin-gonic/gin"
)

type targetPayload struct {
	Target int `json:"target"`
}

type cupSizePayload struct {
	Size  int    `json:"size"`
	Label string `json:"label"`
}

type selectedCupPayload struct {
	ID string `json:"id"`
}

// GetState 返回追踪器当前状态的快照 JSON。
func (a *API) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, a.statePayload())
}

// AddEntry 按当前选中的杯量记录一次饮水并返回结果。
// 选中杯量悬空时引擎静默不做变更，响应中 added 为 false。
func (a *API) AddEntry(c *gin.Context) {
	result := a.tracker.AddWaterEntry()

	payload := gin.H{
		"added":       result.Added,
		"todayTotal":  result.TodayTotal,
		"goalReached": result.GoalReached,
		"goalCrossed": result.GoalCrossed,
		"exactHit":    result.ExactHit,
	}
	if result.Added {
		payload["entry"] = entryToPayload(result.Entry)
	}

	c.JSON(http.StatusOK, payload)
}

// SetTarget 更新每日目标饮水量。
func (a *API) SetTarget(c *gin.Context) {
	var payload targetPayload
	if !bindJSON(c, &payload, "无效的目标参数") {
		return
	}

	a.tracker.SetDailyTarget(payload.Target)
	c.JSON(http.StatusOK, a.statePayload())
}

// SetSelectedCup 更新当前选中的杯量。
func (a *API) SetSelectedCup(c *gin.Context) {
	var payload selectedCupPayload
	if !bindJSON(c, &payload, "无效的杯量参数") {
		return
	}

	a.tracker.SetSelectedCupSize(payload.ID)
	c.JSON(http.StatusOK, a.statePayload())
}

// CreateCupSize 追加一个自定义杯量预设。
func (a *API) CreateCupSize(c *gin.Context) {
	var payload cupSizePayload
	if !bindJSON(c, &payload, "无效的杯量参数") {
		return
	}

	a.tracker.AddCustomCupSize(payload.Size, payload.Label)
	c.JSON(http.StatusOK, a.statePayload())
}

// DeleteCupSize 删除指定杯量预设。
func (a *API) DeleteCupSize(c *gin.Context) {
	a.tracker.RemoveCupSize(c.Param("id"))
	c.JSON(http.StatusOK, a.statePayload())
}

// GetHistory 返回按日期倒序的历史记录，条目按时间倒序。
// 排序只影响读取展示，不改变存储顺序。
func (a *API) GetHistory(c *gin.Context) {
	history := a.tracker.History()

	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Date > history[j].Date
	})

	records := make([]gin.H, 0, len(history))
	for _, record := range history {
		sort.SliceStable(record.Entries, func(i, j int) bool {
			return record.Entries[i].Timestamp > record.Entries[j].Timestamp
		})

		entries := make([]gin.H, 0, len(record.Entries))
		for _, entry := range record.Entries {
			entries = append(entries, entryToPayload(entry))
		}

		records = append(records, gin.H{
			"date":          record.Date,
			"formattedDate": service.FormatRecordDate(record.Date),
			"total":         record.Total,
			"entries":       entries,
		})
	}

	c.JSON(http.StatusOK, gin.H{"history": records})
}

func (a *API) statePayload() gin.H {
	return gin.H{
		"dailyTarget":       a.tracker.DailyTarget(),
		"cupSizes":          a.tracker.CupSizes(),
		"selectedCupSizeId": a.tracker.SelectedCupSizeID(),
		"todayTotal":        a.tracker.TodayTotal(),
		"goalReached":       a.tracker.GoalReached(),
	}
}

func entryToPayload(entry service.WaterEntry) gin.H {
	return gin.H{
		"id":        entry.ID,
		"amount":    entry.Amount,
		"timestamp": entry.Timestamp,
		"time":      service.FormatEntryTime(entry.Timestamp),
		"cupSize":   entry.CupSize,
	}
}
