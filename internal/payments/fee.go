package payments

// ApplicationFee returns percent% of amount in minor units, rounding half up.
// Negative inputs yield zero.
func ApplicationFee(amount, percent int64) int64 {
	if amount <= 0 || percent <= 0 {
		return 0
	}
	return (amount*percent + 50) / 100
}

// Split divides a gross amount into the platform fee reported by the provider
// and the creator's share. A fee larger than gross is clamped.
func Split(gross, fee int64) (platformFee, creatorShare int64) {
	if fee < 0 {
		fee = 0
	}
	if fee > gross {
		fee = gross
	}
	return fee, gross - fee
}
