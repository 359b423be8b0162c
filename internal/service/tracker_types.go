package service

import "strings"

// WaterEntry 表示一次饮水记录，创建后不可变。
// JSON 字段名与存储中的历史数据格式保持一致。
type WaterEntry struct {
	ID        string `json:"id"`
	Amount    int    `json:"amount"`
	Timestamp int64  `json:"timestamp"`
	CupSize   int    `json:"cupSize"`
}

// Valid 校验饮水记录的构造不变量。
func (e WaterEntry) Valid() bool {
	return e.Amount > 0
}

// DailyRecord 表示一个自然日（本地时区）的饮水聚合。
// Total 必须始终等于 Entries 中 Amount 的总和。
type DailyRecord struct {
	Date    string       `json:"date"`
	Entries []WaterEntry `json:"entries"`
	Total   int          `json:"total"`
}

// CupSize 表示一个可复用的杯量预设。
type CupSize struct {
	ID    string `json:"id"`
	Size  int    `json:"size"`
	Label string `json:"label"`
}

// Valid 校验杯量预设的构造不变量。
func (c CupSize) Valid() bool {
	return c.Size > 0 && strings.TrimSpace(c.Label) != ""
}

const (
	// DefaultDailyTarget 是默认的每日目标饮水量（毫升）。
	DefaultDailyTarget = 2500
	// defaultSelectedCupID 是首次运行时选中的杯量。
	defaultSelectedCupID = "1"
)

// defaultCupSizes 返回首次运行时种子化的三个杯量预设。
func defaultCupSizes() []CupSize {
	return []CupSize{
		{ID: "1", Size: 250, Label: "Small (250ml)"},
		{ID: "2", Size: 500, Label: "Medium (500ml)"},
		{ID: "3", Size: 750, Label: "Large (750ml)"},
	}
}

// normalizeCupSizes 丢弃不合法的杯量并按首次出现去重 ID。
func normalizeCupSizes(cups []CupSize) []CupSize {
	seen := make(map[string]struct{}, len(cups))
	result := make([]CupSize, 0, len(cups))
	for _, cup := range cups {
		if !cup.Valid() || cup.ID == "" {
			continue
		}
		if _, ok := seen[cup.ID]; ok {
			continue
		}
		seen[cup.ID] = struct{}{}
		result = append(result, cup)
	}
	return result
}

// normalizeHistory 恢复历史数据的不变量：
// 日期按首次出现去重，非法记录被丢弃，Total 一律由条目重新求和。
func normalizeHistory(history []DailyRecord) []DailyRecord {
	seen := make(map[string]struct{}, len(history))
	result := make([]DailyRecord, 0, len(history))
	for _, record := range history {
		if record.Date == "" {
			continue
		}
		if _, ok := seen[record.Date]; ok {
			continue
		}
		seen[record.Date] = struct{}{}

		entries := make([]WaterEntry, 0, len(record.Entries))
		total := 0
		for _, entry := range record.Entries {
			if !entry.Valid() {
				continue
			}
			entries = append(entries, entry)
			total += entry.Amount
		}

		record.Entries = entries
		record.Total = total
		result = append(result, record)
	}
	return result
}
