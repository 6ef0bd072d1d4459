package export

import (
	"testing"

	"github.com/centralrepo/centralrepo/internal/model"
)

func TestColumnUnion(t *testing.T) {
	formats := []model.Format{
		{ID: 1, Schema: model.Schema{
			{Name: "amount", Kind: model.KindNumber},
			{Name: "name", Kind: model.KindString},
		}},
		{ID: 2, Schema: model.Schema{
			{Name: "name", Kind: model.KindString},
			{Name: "region", Kind: model.KindString},
		}},
	}

	got := ColumnUnion(formats)
	want := []string{"amount", "name", "region"}
	if len(got) != len(want) {
		t.Fatalf("ColumnUnion returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestHeader(t *testing.T) {
	got := string(Header([]string{"amount", "name"}))
	want := "\"ID\",\"FormatId\",\"UploadSessionId\",\"amount\",\"name\"\n"
	if got != want {
		t.Errorf("Header = %q, want %q", got, want)
	}
}

func TestEncodeRow(t *testing.T) {
	columns := []string{"amount", "name", "note"}

	tests := []struct {
		name string
		rec  model.Record
		want string
	}{
		{
			name: "plain values",
			rec: model.Record{ID: 7, FormatID: 1, UploadSessionID: 3, Data: model.Document{
				"amount": float64(12.5),
				"name":   "alpha",
				"note":   "ok",
			}},
			want: "7,1,3,12.5,alpha,ok\n",
		},
		{
			name: "integral number has no decimal point",
			rec: model.Record{ID: 1, FormatID: 1, UploadSessionID: 1, Data: model.Document{
				"amount": float64(40),
			}},
			want: "1,1,1,40,,\n",
		},
		{
			name: "missing columns render empty",
			rec: model.Record{ID: 2, FormatID: 2, UploadSessionID: 5, Data: model.Document{
				"name": "beta",
			}},
			want: "2,2,5,,beta,\n",
		},
		{
			name: "separator and quote are escaped",
			rec: model.Record{ID: 3, FormatID: 1, UploadSessionID: 1, Data: model.Document{
				"name": `acme, "inc"`,
				"note": "line1\nline2",
			}},
			want: "3,1,1,,\"acme, \"\"inc\"\"\",\"line1\nline2\"\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := string(EncodeRow(&tc.rec, columns))
			if got != tc.want {
				t.Errorf("EncodeRow = %q, want %q", got, tc.want)
			}
		})
	}
}
