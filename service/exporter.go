package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"claimflow/models"
	"claimflow/repository"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "报销单"

var exportHeaders = []string{"ID", "提交人", "标题", "类型", "部门", "金额", "状态", "费用日期", "提交时间"}

// ClaimExporter 导出报销单为 Excel
type ClaimExporter struct {
	claims *repository.ClaimRepository
}

// NewClaimExporter 创建导出器
func NewClaimExporter(claims *repository.ClaimRepository) *ClaimExporter {
	return &ClaimExporter{claims: claims}
}

// Export 导出 [start, end] 内提交的报销单，返回 xlsx 内容与记录数
func (e *ClaimExporter) Export(ctx context.Context, start, end time.Time) (*bytes.Buffer, int, error) {
	if end.Before(start) {
		return nil, 0, fmt.Errorf("%w: 结束时间不能早于开始时间", ErrValidation)
	}

	claims, err := e.claims.ListBetween(ctx, start, end)
	if err != nil {
		return nil, 0, fmt.Errorf("查询报销单失败: %w", err)
	}

	f, err := buildClaimWorkbook(claims)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("生成 Excel 失败: %w", err)
	}
	return buf, len(claims), nil
}

func buildClaimWorkbook(claims []models.Claim) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		f.Close()
		return nil, err
	}

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	dataStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"FFC000"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})

	widths := []float64{8, 15, 30, 12, 15, 12, 12, 14, 20}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(exportSheet, col, col, w)
	}

	lastCol, _ := excelize.ColumnNumberToName(len(exportHeaders))
	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(exportSheet, cell, header)
	}
	f.SetCellStyle(exportSheet, "A1", lastCol+"1", headerStyle)

	var total float64
	for i, claim := range claims {
		row := i + 2
		submitter := ""
		if claim.User != nil {
			submitter = claim.User.Name
		}
		values := []interface{}{
			claim.ID,
			submitter,
			claim.Title,
			claim.Type,
			claim.Department,
			claim.Amount,
			claim.Status,
			claim.Date,
			claim.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := f.SetSheetRow(exportSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("写入 Excel 失败: %w", err)
		}
		f.SetCellStyle(exportSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", lastCol, row), dataStyle)
		total += claim.Amount
	}

	summaryRow := len(claims) + 2
	f.SetCellValue(exportSheet, fmt.Sprintf("A%d", summaryRow), "合计")
	f.MergeCell(exportSheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("E%d", summaryRow))
	f.SetCellValue(exportSheet, fmt.Sprintf("F%d", summaryRow), total)
	f.SetCellValue(exportSheet, fmt.Sprintf("G%d", summaryRow), fmt.Sprintf("共 %d 条记录", len(claims)))
	f.MergeCell(exportSheet, fmt.Sprintf("G%d", summaryRow), fmt.Sprintf("%s%d", lastCol, summaryRow))
	f.SetCellStyle(exportSheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("%s%d", lastCol, summaryRow), summaryStyle)

	return f, nil
}
