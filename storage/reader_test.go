package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"

	"attraction-insights/models"
)

const sampleCSV = "名字,地址,评分,门票\n故宫,北京市东城区景山前街4号,4.8,60元\n\n西湖,浙江省杭州市,4.7\n"

func TestDecodeCSVUTF8(t *testing.T) {
	recs, err := DecodeCSV([]byte(sampleCSV))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "故宫", recs[0].Get(models.FieldName))
	assert.Equal(t, "60元", recs[0].Get(models.FieldPrice))
	assert.Equal(t, "", recs[1].Get(models.FieldPrice))
}

func TestDecodeCSVStripsBOM(t *testing.T) {
	data := append(append([]byte{}, utf8BOM...), sampleCSV...)
	recs, err := DecodeCSV(data)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "故宫", recs[0][models.FieldName])
}

func TestDecodeCSVFallsBackToGB18030(t *testing.T) {
	gbk, err := simplifiedchinese.GB18030.NewEncoder().Bytes([]byte(sampleCSV))
	require.NoError(t, err)

	recs, err := DecodeCSV(gbk)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "北京市东城区景山前街4号", recs[0].Get(models.FieldAddress))
}

func TestDecodeCSVUnreadable(t *testing.T) {
	_, err := DecodeCSV([]byte{'a', ',', 'b', '\n', 0xFF, 0xFF, 0x80, '\n'})
	assert.ErrorIs(t, err, ErrUnreadableSource)
}

func TestReadRecordsUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0644))

	_, err := ReadRecords(path)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadRecordsXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"name", "address", "rating"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"黄山", "安徽省黄山市", "4.9"}))

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	path := filepath.Join(t.TempDir(), "anhui.xlsx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	recs, err := ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "黄山", recs[0].Get(models.FieldName))
	assert.Equal(t, "4.9", recs[0].Get(models.FieldRating))
}

func TestExpandSources(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.xlsx", "notes.txt", "~$a.xlsx"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.csv"), 0755))
	single := filepath.Join(t.TempDir(), "single.csv")
	require.NoError(t, os.WriteFile(single, nil, 0644))

	got, err := ExpandSources([]string{dir, single})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.xlsx"),
		filepath.Join(dir, "b.csv"),
		single,
	}, got)

	_, err = ExpandSources([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}

func TestCSVWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "clean.csv")
	w, err := NewCleanCSVWriter(path)
	require.NoError(t, err)

	lat := 39.91
	require.NoError(t, w.WriteAttractions([]*models.Attraction{{
		Name: "故宫", Address: "北京市东城区景山前街4号", Rating: 4.8, TicketPrice: "60元",
		Province: "北京", District: "东城区", Latitude: &lat,
	}}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, utf8BOM))

	recs, err := ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "故宫", recs[0].Get(models.FieldName))
	assert.Equal(t, "4.8", recs[0].Get(models.FieldRating))
	assert.Equal(t, "39.91", recs[0].Get(models.FieldLatitude))
	assert.Equal(t, "北京", recs[0]["省份"])
}

func TestCSVWriterRaw(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.csv")
	w, err := NewRawCSVWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteRaw([]models.RawRecord{
		{"name": "西湖", models.FieldSource: "携程"},
	}))
	require.NoError(t, w.Close())

	recs, err := ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "西湖", recs[0][models.FieldName])
	assert.Equal(t, "携程", recs[0][models.FieldSource])
}
