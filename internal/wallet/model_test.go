package wallet

import "testing"

func TestNormalizeStatus(t *testing.T) {
	tests := map[string]Status{
		"pending":    StatusPending,
		"COMPLETED":  StatusCompleted,
		" cancelled": StatusCancelled,
		"approved":   StatusPending,
		"":           StatusPending,
	}
	for raw, want := range tests {
		if got := NormalizeStatus(raw); got != want {
			t.Errorf("NormalizeStatus(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestMaskCard(t *testing.T) {
	tests := map[string]string{
		"4111-1111-1111-1234": "1234",
		"1234":                "1234",
		"12":                  "12",
		"":                    "",
	}
	for in, want := range tests {
		if got := MaskCard(in); got != want {
			t.Errorf("MaskCard(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestApplyHoldings(t *testing.T) {
	btc := Asset{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin"}

	h := ApplyAddHolding(nil, btc, d("0.5"))
	if len(h) != 1 || h[0].Symbol != "BTC" || h[0].CryptoID != "bitcoin" {
		t.Fatalf("add = %+v", h)
	}
	h = ApplyAddHolding(h, Asset{Symbol: "btc"}, d("0.25"))
	if len(h) != 1 || !h[0].Amount.Equal(d("0.75")) {
		t.Fatalf("increment = %+v", h)
	}
	h = ApplyRemoveHolding(h, Asset{ID: "ethereum"}, d("1"))
	if len(h) != 1 {
		t.Fatalf("removing an unheld asset changed holdings: %+v", h)
	}
	h = ApplyRemoveHolding(h, btc, d("1"))
	if len(h) != 0 {
		t.Fatalf("overdrawn holding kept: %+v", h)
	}
}

func TestApplyDebitFloorsAtZero(t *testing.T) {
	if got := ApplyDebit(d("30"), d("80")); !got.IsZero() {
		t.Fatalf("got %s", got)
	}
	if got := ApplyDebit(d("80"), d("30")); !got.Equal(d("50")) {
		t.Fatalf("got %s", got)
	}
}
