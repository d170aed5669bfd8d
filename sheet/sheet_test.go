package sheet_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/backoffice/office"
	"github.com/warp/backoffice/sheet"
)

func TestLabels_Korean(t *testing.T) {
	l := sheet.NewLabels("ko")
	assert.Equal(t, "1차성공", l.Status(office.StatusSuccess1))
	assert.Equal(t, "작업전", l.Status(office.StatusPending))
	assert.Equal(t, "미지정", l.Unassigned())
	assert.Equal(t, []string{"고객명", "연락처", "주소", "상담사", "가입일", "상태", "메모"}, l.Header())
}

func TestLabels_EnglishAndFallback(t *testing.T) {
	assert.Equal(t, "Promising", sheet.NewLabels("en-US").Status(office.StatusPromising))
	assert.Equal(t, "부재", sheet.NewLabels("fr").Status(office.StatusAbsent))
}

func TestEncode_WritesHeaderAndRows(t *testing.T) {
	labels := sheet.NewLabels("en")
	rows := []office.ExportRow{
		{Name: "Hong", Contact: "010-1", Address: "Seoul", Consultant: "kim", CreatedAt: "2025-03-10 09:05", StatusLabel: "Pending", Note: "vip"},
	}

	var buf bytes.Buffer
	require.NoError(t, sheet.Encode(&buf, rows, labels))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, "Clients", f.GetSheetName(0))
	got, err := f.GetRows("Clients")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, labels.Header(), got[0])
	assert.Equal(t, []string{"Hong", "010-1", "Seoul", "kim", "2025-03-10 09:05", "Pending", "vip"}, got[1])
}

func TestDecode_SkipsHeaderAndPadsShortRows(t *testing.T) {
	f := excelize.NewFile()
	sheetName := f.GetSheetName(0)
	data := [][]any{
		{"name", "contact", "address", "note"},
		{"Hong", "010-1", "Seoul", "vip", "ignored"},
		{"Lee", " 010-2 "},
	}
	for i, row := range data {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheetName, cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	rows, err := sheet.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, []office.ImportRow{
		{Name: "Hong", Contact: "010-1", Address: "Seoul", Note: "vip"},
		{Name: "Lee", Contact: "010-2"},
	}, rows)
}

func TestDecode_RejectsGarbage(t *testing.T) {
	_, err := sheet.Decode(bytes.NewReader([]byte("not a workbook")))
	assert.Error(t, err)
}
