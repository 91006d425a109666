package sqlinline

const QInsertAuditEvent = `--sql 84ddef77-c1b4-46ce-bd67-12b8b09247c0
insert into promo_audit_events(id, user_id, item_id, item_type, points, score_category, outcome, country, created_at)
values (gen_random_uuid(), $1::text, $2::text, $3::text, $4::int, $5::text, $6::text, nullif($7::text, ''), now());
`

const QRollupDailyAnalytics = `--sql b1c50acd-8af4-497a-a9bd-9e0bd9c36d12
insert into promo_analytics_daily (day, spend_attempts, spend_accepted, spend_rejected, points_spent, created_at, updated_at)
select
    created_at::date as day,
    count(*) as spend_attempts,
    count(*) filter (where outcome = 'accepted') as spend_accepted,
    count(*) filter (where outcome <> 'accepted') as spend_rejected,
    coalesce(sum(points) filter (where outcome = 'accepted'), 0) as points_spent,
    now(), now()
from promo_audit_events
where created_at::date = $1::date
group by created_at::date
on conflict (day) do update set
    spend_attempts = excluded.spend_attempts,
    spend_accepted = excluded.spend_accepted,
    spend_rejected = excluded.spend_rejected,
    points_spent = excluded.points_spent,
    updated_at = now();
`
