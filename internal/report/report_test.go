package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jwZhang-1102/goodsManagement/internal/domain/inventory"
)

func readRows(t *testing.T, buf *bytes.Buffer, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestStockWorkbook(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	err := StockWorkbook(&buf, []inventory.StockRecord{
		{ItemCode: "P-1001", ItemName: "Laptop X1", LocationCode: "SH-MAIN", LocationName: "Shanghai main", Quantity: 3, SafetyThreshold: 10, UpdatedAt: at},
		{ItemCode: "P-1002", LocationCode: "BJ-01", Quantity: 40, UpdatedAt: at},
	})
	require.NoError(t, err)

	rows := readRows(t, &buf, "Stock")
	require.Len(t, rows, 3)
	assert.Equal(t, "item_code", rows[0][0])
	assert.Equal(t, []string{"P-1001", "Laptop X1", "SH-MAIN", "Shanghai main", "3", "10", "yes", "2024-05-01T10:00:00Z"}, rows[1])
	assert.Equal(t, "40", rows[2][4])
	assert.Equal(t, "", rows[2][6])
}

func TestTransferWorkbook(t *testing.T) {
	var buf bytes.Buffer
	err := TransferWorkbook(&buf, []inventory.TransferRecord{{
		ID: "t-1", ItemCode: "P-1001", ItemName: "Laptop X1",
		SourceLocation: "SH-MAIN", SourceLocationName: "Shanghai main",
		DestLocation: "BJ-01", DestLocationName: "Beijing branch",
		Quantity: 30, Initiator: "alice", CreatedAt: time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC),
	}})
	require.NoError(t, err)

	rows := readRows(t, &buf, "Transfers")
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], 10)
	assert.Equal(t, "t-1", rows[1][0])
	assert.Equal(t, "30", rows[1][8])
	assert.Equal(t, "alice", rows[1][9])
}

func TestWorkbook_EmptyHasHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TransferWorkbook(&buf, nil))
	rows := readRows(t, &buf, "Transfers")
	assert.Len(t, rows, 1)
}
