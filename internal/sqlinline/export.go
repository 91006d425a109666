package sqlinline

const QExportSpendEvents = `--sql 4b658ed6-de74-4640-813a-f940270ba9ed
select id, user_id, item_id, item_type, score_category, points, created_at
from promotion_spend_events
where created_at >= $1::timestamptz
order by created_at asc;
`
