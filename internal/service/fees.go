package service

// FeePolicy computes the platform fee for a listing price at a fixed
// basis-point rate. Everything stays in integer minor currency units with
// floor rounding; no floating point is involved anywhere in the math.
type FeePolicy struct {
	RateBps int64
}

func (p FeePolicy) Fee(price int64) int64 {
	return price * p.RateBps / 10000
}

func (p FeePolicy) Total(price int64) int64 {
	return price + p.Fee(price)
}
