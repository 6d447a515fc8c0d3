package http

import (
	"testing"
	"time"
)

func TestResponse_TimingAccessors(t *testing.T) {
	resp := &Response{
		StatusCode: 200,
		Status:     "200 OK",
		Timing: TimingInfo{
			DNSLookupTime:       10 * time.Millisecond,
			TCPConnectTime:      20 * time.Millisecond,
			TLSHandshakeTime:    30 * time.Millisecond,
			TimeToFirstByte:     40 * time.Millisecond,
			ContentTransferTime: 50 * time.Millisecond,
			TotalTime:           150 * time.Millisecond,
		},
		ResponseTime: 150 * time.Millisecond,
	}

	cases := []struct {
		name string
		got  int64
		want int64
	}{
		{"DNSLookup", resp.GetDNSLookupTimeMillis(), 10},
		{"TCPConnect", resp.GetTCPConnectTimeMillis(), 20},
		{"TLSHandshake", resp.GetTLSHandshakeTimeMillis(), 30},
		{"TimeToFirstByte", resp.GetTimeToFirstByteMillis(), 40},
		{"ContentTransfer", resp.GetContentTransferTimeMillis(), 50},
		{"Total", resp.GetTotalTimeMillis(), 150},
		{"ResponseTime (legacy alias)", resp.GetResponseTimeMillis(), 150},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("%s = %dms, want %dms", tc.name, tc.got, tc.want)
		}
	}
}

func TestResponse_TimingAccessors_ZeroValue(t *testing.T) {
	resp := &Response{StatusCode: 200, Status: "200 OK"}

	accessors := map[string]func() int64{
		"DNSLookup":       resp.GetDNSLookupTimeMillis,
		"TCPConnect":      resp.GetTCPConnectTimeMillis,
		"TLSHandshake":    resp.GetTLSHandshakeTimeMillis,
		"TimeToFirstByte": resp.GetTimeToFirstByteMillis,
		"ContentTransfer": resp.GetContentTransferTimeMillis,
		"Total":           resp.GetTotalTimeMillis,
	}
	for name, fn := range accessors {
		if got := fn(); got != 0 {
			t.Errorf("%s = %dms, want 0 on a zero-value TimingInfo", name, got)
		}
	}
}
