package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/Dan9191/deposit-service/internal/models"
)

// canonicalCalculation renders a calculation in a stable textual form.
// Floats use the shortest representation that round-trips exactly.
func canonicalCalculation(p models.FDParameters, r models.FDResult) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return f(p.Principal) + "|" + f(p.TenureYears) + "|" + f(p.AnnualRatePercent) + "|" +
		p.CompoundingFrequency.String() + "|" + f(r.MaturityAmount) + "|" + f(r.TotalInterest)
}

// GenerateHMAC generates an HMAC for a calculation's parameters and results
func GenerateHMAC(p models.FDParameters, r models.FDResult, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(canonicalCalculation(p, r)))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyHMAC reports whether signature matches the calculation
func VerifyHMAC(p models.FDParameters, r models.FDResult, signature, secret string) bool {
	expected, err := hex.DecodeString(GenerateHMAC(p, r, secret))
	if err != nil {
		return false
	}
	given, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, given)
}

// CacheKey derives a short stable key for a calculation, used to cache
// explanations of identical requests
func CacheKey(prefix string, p models.FDParameters, r models.FDResult) string {
	sum := sha256.Sum256([]byte(canonicalCalculation(p, r)))
	return prefix + hex.EncodeToString(sum[:16])
}
