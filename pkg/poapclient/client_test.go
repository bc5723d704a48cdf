package poapclient

import "testing"

func TestQRHashFromClaimURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{url: "https://poap.xyz/claim/abc123", want: "abc123"},
		{url: "https://poap.xyz/mint/xyz789/", want: "xyz789"},
		{url: "  https://poap.xyz/claim/abc123  ", want: "abc123"},
		{url: "abc123", want: "abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := QRHashFromClaimURL(tt.url); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
