package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeFolderName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Trận Đấu 1", "TranDau1"},
		{"Vượt Chướng Ngại Vật", "VuotChuongNgaiVat"},
		{"20250101_AB12CD_Khởi Động", "20250101_AB12CD_KhoiDong"},
		{"abc-123 !@#", "abc123"},
		{"đường_lên_đỉnh", "duong_len_dinh"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, NormalizeFolderName(c.in), "input %q", c.in)
	}
}

func TestGenerateMatchCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := GenerateMatchCode(6)
		require.Len(t, code, 6)
		for _, r := range code {
			require.True(t, strings.ContainsRune(codeCharset, r))
		}
		seen[code] = true
	}
	// 100 draws from a 36^6 space colliding down to a handful would mean the
	// generator is broken.
	require.Greater(t, len(seen), 90)
}

func TestGenerateMatchID(t *testing.T) {
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	id := GenerateMatchID("Trận Đấu 1", "XY99ZK", now)
	require.Equal(t, "20250314_XY99ZK_TrậnĐấu1", id)
	require.Equal(t, "20250314_XY99ZK_TranDau1", NormalizeFolderName(id))
}
