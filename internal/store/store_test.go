package store

import (
	"context"
	"errors"
	"testing"
)

type memBackend struct {
	data    map[Collection][]byte
	loadErr error
}

func (b *memBackend) Load(_ context.Context, c Collection) ([]byte, error) {
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	return b.data[c], nil
}

func (b *memBackend) Save(_ context.Context, c Collection, data []byte) error {
	b.data[c] = data
	return nil
}

func (b *memBackend) Close() error { return nil }

type entry struct {
	RegNo string `json:"reg_no"`
}

func TestReadForUpdate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		data    []byte
		loadErr error
		want    int
		wantErr bool
	}{
		{name: "missing collection", want: 0},
		{name: "stored records", data: []byte(`[{"reg_no":"S001"},{"reg_no":"S002"}]`), want: 2},
		{name: "corrupt document reads empty", data: []byte("{not json"), want: 0},
		{name: "load failure", loadErr: errors.New("connection reset"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &memBackend{data: map[Collection][]byte{Roster: tt.data}, loadErr: tt.loadErr}

			got, err := ReadForUpdate[entry](ctx, b, Roster)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, tt.loadErr) {
					t.Errorf("error %v does not wrap %v", err, tt.loadErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadForUpdate() error = %v", err)
			}
			if got == nil || len(got) != tt.want {
				t.Errorf("ReadForUpdate() = %#v, want %d records", got, tt.want)
			}
		})
	}
}

func TestRead_LoadFailureReadsEmpty(t *testing.T) {
	b := &memBackend{loadErr: errors.New("connection reset")}

	got := Read[entry](context.Background(), b, Ledger)
	if got == nil || len(got) != 0 {
		t.Errorf("Read() = %#v, want empty slice", got)
	}
}
