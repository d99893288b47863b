package domain

import "testing"

func TestLocalStatus(t *testing.T) {
	cases := []struct {
		provider string
		want     PaymentStatus
		due      bool
	}{
		{CheckoutPaid, StatusSucceeded, true},
		{CheckoutFailed, StatusFailed, true},
		{CheckoutPending, StatusPending, false},
		{"SOMETHING_NEW", StatusPending, false},
	}
	for _, tc := range cases {
		got, due := LocalStatus(tc.provider)
		if got != tc.want || due != tc.due {
			t.Errorf("LocalStatus(%s) = (%s, %v), want (%s, %v)", tc.provider, got, due, tc.want, tc.due)
		}
	}
}

func TestProviderVocab_RoundTrips(t *testing.T) {
	for _, s := range []PaymentStatus{StatusPending, StatusSucceeded, StatusFailed} {
		vocab := ProviderVocab(s)
		back, _ := LocalStatus(vocab)
		if back != s {
			t.Errorf("vocabulary round trip broke: %s -> %s -> %s", s, vocab, back)
		}
	}
}
