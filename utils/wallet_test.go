package utils

import (
	"testing"

	"goat-rush/models"
)

func TestNormalizeWallet(t *testing.T) {
	tests := []struct {
		name      string
		address   string
		chain     models.Chain
		want      string
		wantChain models.Chain
		wantErr   bool
	}{
		{
			name:      "evm lowercased",
			address:   "0xAbCdEf0123456789aBcDeF0123456789AbCdEf01",
			chain:     models.ChainBase,
			want:      "0xabcdef0123456789abcdef0123456789abcdef01",
			wantChain: models.ChainBase,
		},
		{
			name:      "evm inferred",
			address:   "  0x00000000000000000000000000000000000000aa ",
			want:      "0x00000000000000000000000000000000000000aa",
			wantChain: models.ChainBase,
		},
		{
			name:      "solana kept",
			address:   "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
			want:      "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
			wantChain: models.ChainSolana,
		},
		{name: "evm too short", address: "0x1234", chain: models.ChainBase, wantErr: true},
		{name: "solana bad char", address: "0OIl0000000000000000000000000000000", chain: models.ChainSolana, wantErr: true},
		{name: "empty", address: "   ", wantErr: true},
		{name: "unknown chain", address: "abc", chain: "tron", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, chain, err := NormalizeWallet(tt.address, tt.chain)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("address = %q, want %q", got, tt.want)
			}
			if chain != tt.wantChain {
				t.Errorf("chain = %q, want %q", chain, tt.wantChain)
			}
		})
	}
}
