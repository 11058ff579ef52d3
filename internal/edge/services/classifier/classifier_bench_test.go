package classifier

import (
	"testing"

	"github.com/haukened/geo-gate/internal/edge/domain"
	"github.com/haukened/geo-gate/internal/edge/repos/policy"
)

func BenchmarkClassify_Override(b *testing.B) {
	c := builtin(b, policy.Override)
	reqs := []domain.Request{
		domain.NewRequest("/login", "US"),
		domain.NewRequest("/vendor/autoload.php", "DE"),
		domain.NewRequest("/dashboard", "CA"),
		domain.NewRequest("/dashboard", ""),
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Classify(reqs[i%len(reqs)])
	}
}

func BenchmarkMatchRule_PlainScan(b *testing.B) {
	p, err := policy.Builtin(policy.Override)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = MatchRule("/dashboard", p.Rules)
	}
}
