package sqlinline

const QPromoStatsSummary = `--sql 2b88b6dd-1d64-45ba-a1d4-c1187277bf9c
select
    (select count(*) from promotion_accounts) as total_accounts,
    (select count(*) from promotion_spend_events) as total_spend_events,
    (select coalesce(sum(points), 0) from promotion_spend_events) as total_points_spent,
    (select count(distinct item_id) from promotion_spend_events) as promoted_items,
    (select count(*) from promotion_spend_events where created_at >= now() - interval '24 hours') as spends_last_24h,
    (select coalesce(sum(points), 0) from promotion_spend_events where created_at >= now() - interval '24 hours') as points_last_24h;
`
