package products

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLabelCodeIsStableAndCompact(t *testing.T) {
	code := LabelCode(42)
	require.Len(t, code, labelCodeLength)
	require.Equal(t, code, LabelCode(42))
	require.NotEqual(t, code, LabelCode(43))

	// Existing printed labels encode sha256("{id}_karma_product_qr_salt")
	// truncated to 16 hex chars; the scheme must not drift.
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d_%s", 42, "karma_product_qr_salt")))
	require.Equal(t, hex.EncodeToString(sum[:])[:16], code)
}
