package sqlinline

// Refill accounts whose last reset predates today. Safety net behind the
// lazy per-request reset: both paths stamp the same reset date, so they
// never double-credit.
const QSweepStaleAllowances = `--sql 36c2928d-af79-4f5a-8f17-17f0f6999126
update promotion_accounts
set points_available_today = daily_allowance,
    last_reset_date = $1::date,
    updated_at = now()
where last_reset_date < $1::date;
`
