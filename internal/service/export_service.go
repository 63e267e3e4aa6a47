package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/sarthakk1890/Schedule-slot-swapper/internal/model"
	"github.com/sarthakk1890/Schedule-slot-swapper/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoSlots      = errors.New("暂无可导出的时段")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出内容为调用者的个人日历与换班历史，两个 Sheet
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportSlots 导出个人时段与换班历史为 Excel
	ExportSlots(ctx context.Context, userID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportSlots — 导出个人日历为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "我的时段"：标题 / 开始 / 结束 / 状态，按 start_time 排序
//   - Sheet "换班历史"：方向 / 对方 / 提供时段 / 请求时段 / 状态 / 时间
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportSlots(ctx context.Context, userID string) (*bytes.Buffer, string, error) {
	slots, err := s.repo.Slot.ListByOwner(ctx, userID)
	if err != nil {
		s.logger.Error("查询时段失败", zap.Error(err))
		return nil, "", err
	}
	if len(slots) == 0 {
		return nil, "", ErrExportNoSlots
	}

	swaps, err := s.repo.SwapRequest.List(ctx, userID, repository.SwapDirectionAll)
	if err != nil {
		s.logger.Error("查询换班历史失败", zap.Error(err))
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := s.writeSlotSheet(f, slots); err != nil {
		return nil, "", err
	}
	if err := s.writeSwapSheet(f, swaps, userID); err != nil {
		return nil, "", err
	}
	f.DeleteSheet("Sheet1")

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("我的日历_%s.xlsx", time.Now().Format("20060102"))
	return buf, filename, nil
}

func (s *exportService) writeSlotSheet(f *excelize.File, slots []model.Slot) error {
	const sheet = "我的时段"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)

	f.SetColWidth(sheet, "A", "A", 28)
	f.SetColWidth(sheet, "B", "C", 20)
	f.SetColWidth(sheet, "D", "D", 12)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	headers := []string{"标题", "开始时间", "结束时间", "状态"}
	for i, h := range headers {
		f.SetCellValue(sheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheet, "A1", cell(colName(len(headers)-1), 1), headerStyle)

	statusNames := map[string]string{
		model.SlotStatusBusy:      "占用",
		model.SlotStatusSwappable: "可换",
	}
	row := 2
	for i := range slots {
		sl := &slots[i]
		f.SetCellValue(sheet, cell("A", row), sl.Title)
		f.SetCellValue(sheet, cell("B", row), sl.StartTime.Format("2006-01-02 15:04"))
		f.SetCellValue(sheet, cell("C", row), sl.EndTime.Format("2006-01-02 15:04"))
		f.SetCellValue(sheet, cell("D", row), statusNames[sl.Status])
		row++
	}
	return nil
}

func (s *exportService) writeSwapSheet(f *excelize.File, swaps []model.SwapRequest, userID string) error {
	const sheet = "换班历史"
	if _, err := f.NewSheet(sheet); err != nil {
		return ErrExportGenerateFail
	}

	f.SetColWidth(sheet, "A", "B", 14)
	f.SetColWidth(sheet, "C", "D", 28)
	f.SetColWidth(sheet, "E", "F", 18)

	headers := []string{"方向", "对方", "提供时段", "请求时段", "状态", "发起时间"}
	for i, h := range headers {
		f.SetCellValue(sheet, cell(colName(i), 1), h)
	}

	statusNames := map[string]string{
		model.SwapStatusPending:  "待处理",
		model.SwapStatusAccepted: "已接受",
		model.SwapStatusRejected: "已拒绝",
	}
	row := 2
	for i := range swaps {
		sw := &swaps[i]
		direction := "发出"
		counterpart := sw.Recipient
		if sw.RecipientID == userID {
			direction = "收到"
			counterpart = sw.Requester
		}
		f.SetCellValue(sheet, cell("A", row), direction)
		f.SetCellValue(sheet, cell("B", row), displayName(counterpart))
		f.SetCellValue(sheet, cell("C", row), slotTitle(sw.OfferedSlot))
		f.SetCellValue(sheet, cell("D", row), slotTitle(sw.RequestedSlot))
		f.SetCellValue(sheet, cell("E", row), statusNames[sw.Status])
		f.SetCellValue(sheet, cell("F", row), sw.CreatedAt.Format("2006-01-02 15:04"))
		row++
	}
	return nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
