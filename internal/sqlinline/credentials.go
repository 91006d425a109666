package sqlinline

const QSelectAppCredential = `--sql 9ad20081-56e2-43c8-85ca-5ada1ae50458
select secret from app_credentials where name = $1::text limit 1;
`

const QUpsertAppCredential = `--sql 2288ba50-8159-4dae-a9aa-472fb32d6482
insert into app_credentials(name, secret, properties, created_at, updated_at)
values ($1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb), now(), now())
on conflict (name) do update set
    secret = excluded.secret,
    properties = excluded.properties,
    updated_at = now();
`
