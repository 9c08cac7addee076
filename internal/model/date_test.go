package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_JSON(t *testing.T) {
	d := NewDate(1980, time.January, 15)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"1980-01-15"`, string(data))

	var parsed Date
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.True(t, parsed.Equal(d.Time))
}

func TestDate_UnmarshalJSONRejectsNonDates(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "timestamp", input: `"1980-01-15T00:00:00Z"`},
		{name: "impossible day", input: `"1980-02-30"`},
		{name: "number", input: `19800115`},
		{name: "free text", input: `"yesterday"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			assert.Error(t, json.Unmarshal([]byte(tt.input), &d))
		})
	}
}

func TestDate_Scan(t *testing.T) {
	tests := []struct {
		name    string
		src     interface{}
		want    string
		wantErr bool
	}{
		{name: "time", src: time.Date(1975, time.June, 22, 13, 4, 0, 0, time.UTC), want: "1975-06-22"},
		{name: "string", src: "1990-03-10", want: "1990-03-10"},
		{name: "bytes", src: []byte("1985-09-18"), want: "1985-09-18"},
		{name: "timestamp string", src: "1992-12-05 00:00:00+00:00", want: "1992-12-05"},
		{name: "nil", src: nil, want: ""},
		{name: "unsupported", src: 42, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			err := d.Scan(tt.src)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.String())
		})
	}
}

func TestDate_Value(t *testing.T) {
	v, err := NewDate(1980, time.January, 15).Value()
	require.NoError(t, err)
	assert.Equal(t, "1980-01-15", v)

	v, err = Date{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestUpdatePatientRequest_IsEmpty(t *testing.T) {
	name := "Jane"
	assert.True(t, UpdatePatientRequest{}.IsEmpty())
	assert.False(t, UpdatePatientRequest{FirstName: &name}.IsEmpty())
}
