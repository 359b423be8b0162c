package service

import "time"

// FormatEntryTime 将毫秒时间戳格式化为 HH:mm，供展示层使用。
func FormatEntryTime(tsMillis int64) string {
	if tsMillis <= 0 {
		return ""
	}
	return time.UnixMilli(tsMillis).Format("15:04")
}

// FormatRecordDate 将 YYYY-MM-DD 日期键格式化为长日期，
// 例如 "Monday, January 2, 2006"。无法解析时返回空字符串。
func FormatRecordDate(date string) string {
	t, err := time.ParseInLocation(dateKeyFormat, date, time.Local)
	if err != nil {
		return ""
	}
	return t.Format("Monday, January 2, 2006")
}
