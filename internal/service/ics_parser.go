package service

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/sarthakk1890/Schedule-slot-swapper/internal/model"
)

// ── ICS 解析器 ──────────────────────────────────────────────
//
// 职责：将标准 iCalendar (RFC 5545) 内容解析为 Slot 列表。
//
// 设计决策：
//   - DTSTART/DTEND 确定时段的绝对起止时间，统一转为 UTC 存储
//   - 无 DTEND 但有 DURATION 时默认 1 小时
//   - WEEKLY RRULE 展开为多个独立时段（受 COUNT/UNTIL 与上限约束）
//   - 导入的时段一律为 BUSY，是否开放换班由持有者之后手动决定
//   - 无 SUMMARY、起止缺失或倒置的事件直接跳过，不中断整体导入
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize  = 5 * 1024 * 1024 // 5MB
	icsFetchTimeout = 30 * time.Second

	// 单条 RRULE 最多展开的实例数，防止无终止规则撑爆导入
	icsMaxOccurrences = 52
)

// FetchICSContent 从 URL 获取 ICS 内容
func FetchICSContent(rawURL string) (io.ReadCloser, error) {
	// webcal:// → https://
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}

	client := &http.Client{Timeout: icsFetchTimeout}
	resp, err := client.Get(u)
	if err != nil {
		return nil, fmt.Errorf("获取 ICS 失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("获取 ICS 失败: HTTP %d", resp.StatusCode)
	}
	// 限制响应体大小，防止恶意 URL 返回超大内容导致 OOM
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: io.LimitReader(resp.Body, icsMaxFileSize),
		Closer: resp.Body,
	}, nil
}

// ParseICS 解析 ICS 内容并转为归属 ownerID 的 Slot 列表
func ParseICS(reader io.Reader, ownerID string) ([]model.Slot, error) {
	cal, err := ics.ParseCalendar(reader)
	if err != nil {
		return nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}

	var slots []model.Slot
	for _, evt := range cal.Events() {
		slots = append(slots, expandVEvent(evt, ownerID)...)
	}
	return slots, nil
}

// expandVEvent 将单个 VEVENT 展开为零或多个时段
func expandVEvent(evt *ics.VEvent, ownerID string) []model.Slot {
	summary := evt.GetProperty(ics.ComponentPropertySummary)
	if summary == nil || strings.TrimSpace(summary.Value) == "" {
		return nil
	}
	title := strings.TrimSpace(summary.Value)

	start, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart)
	if err != nil {
		return nil
	}
	end, err := parseICSDateTime(evt, ics.ComponentPropertyDtEnd)
	if err != nil {
		// 若无 DTEND，尝试用 DURATION（简化处理：默认 1 小时）
		if evt.GetProperty(ics.ComponentPropertyDuration) == nil {
			return nil
		}
		end = start.Add(time.Hour)
	}
	if !end.After(start) {
		return nil
	}
	duration := end.Sub(start)

	exDates := parseExDates(evt)

	var slots []model.Slot
	for _, occ := range expandOccurrences(evt, start) {
		if exDates[occ.UTC().Format("20060102")] {
			continue
		}
		slots = append(slots, model.Slot{
			OwnerID:   ownerID,
			Title:     title,
			StartTime: occ.UTC(),
			EndTime:   occ.Add(duration).UTC(),
			Status:    model.SlotStatusBusy,
		})
	}
	return slots
}

// expandOccurrences 根据 RRULE 生成事件的全部起始时间；无 RRULE 即单次事件
func expandOccurrences(evt *ics.VEvent, start time.Time) []time.Time {
	rruleProp := evt.GetProperty(ics.ComponentPropertyRrule)
	if rruleProp == nil {
		return []time.Time{start}
	}

	rule := parseRRule(rruleProp.Value)
	if rule.freq != "WEEKLY" {
		// 仅支持周重复展开，其它频率退化为单次
		return []time.Time{start}
	}

	interval := rule.interval
	if interval < 1 {
		interval = 1
	}
	limit := rule.count
	if limit <= 0 || limit > icsMaxOccurrences {
		limit = icsMaxOccurrences
	}

	var out []time.Time
	current := start
	for len(out) < limit {
		if !rule.until.IsZero() && current.After(rule.until) {
			break
		}
		out = append(out, current)
		current = current.AddDate(0, 0, 7*interval)
	}
	return out
}

// rruleParams RRULE 解析结果
type rruleParams struct {
	freq     string
	interval int
	count    int
	until    time.Time
}

// parseRRule 解析 RRULE 字符串（如 FREQ=WEEKLY;COUNT=16;INTERVAL=1）
func parseRRule(value string) rruleParams {
	r := rruleParams{interval: 1}
	for _, part := range strings.Split(value, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToUpper(kv[0]) {
		case "FREQ":
			r.freq = strings.ToUpper(kv[1])
		case "INTERVAL":
			fmt.Sscanf(kv[1], "%d", &r.interval)
		case "COUNT":
			fmt.Sscanf(kv[1], "%d", &r.count)
		case "UNTIL":
			t, err := time.Parse("20060102T150405Z", kv[1])
			if err != nil {
				t, _ = time.Parse("20060102", kv[1])
			}
			r.until = t
		}
	}
	return r
}

// parseExDates 解析事件中所有 EXDATE，按 UTC 日期归档
func parseExDates(evt *ics.VEvent) map[string]bool {
	exDates := make(map[string]bool)
	for _, prop := range evt.Properties {
		if prop.IANAToken == string(ics.ComponentPropertyExdate) {
			t, err := time.Parse("20060102T150405Z", prop.Value)
			if err != nil {
				t, err = time.Parse("20060102T150405", prop.Value)
				if err != nil {
					t, err = time.Parse("20060102", prop.Value)
				}
			}
			if err == nil {
				exDates[t.UTC().Format("20060102")] = true
			}
		}
	}
	return exDates
}

// parseICSDateTime 从 VEVENT 中解析日期时间属性，统一转为 UTC
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty) (time.Time, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, fmt.Errorf("missing property %s", propName)
	}
	val := prop.Value

	// 检查 TZID 参数
	tzid := ""
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			tzid = v[0]
		}
	}

	// 尝试多种 ICS 日期格式
	formats := []string{
		"20060102T150405Z",
		"20060102T150405",
		"20060102",
	}
	for _, layout := range formats {
		t, err := time.Parse(layout, val)
		if err != nil {
			continue
		}
		if strings.HasSuffix(layout, "Z") {
			return t.UTC(), nil
		}
		loc := time.UTC
		if tzid != "" {
			if tzLoc, tzErr := time.LoadLocation(tzid); tzErr == nil {
				loc = tzLoc
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("无法解析日期: %s", val)
}
