package restrict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hacker0x01/h1ql/pkg/emit"
	"github.com/Hacker0x01/h1ql/pkg/parse"
)

func TestRestrictAccepts(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "plain projection",
			sql:  "select id, name from teams",
			want: "SELECT id, name FROM teams",
		},
		{
			name: "distinct",
			sql:  "select distinct id from teams",
			want: "SELECT DISTINCT id FROM teams",
		},
		{
			name: "star",
			sql:  "select * from teams",
			want: "SELECT * FROM teams",
		},
		{
			name: "qualified star",
			sql:  "select t.* from teams t",
			want: "SELECT t.* FROM teams AS t",
		},
		{
			name: "aggregates with grouping",
			sql:  "select count(*), sum(amount) from payments group by status having count(*) > 1",
			want: "SELECT count(*), sum(amount) FROM payments GROUP BY status HAVING (count(*) > 1)",
		},
		{
			name: "ordering and paging",
			sql:  "select id from reports order by id desc nulls last limit 10 offset 5",
			want: "SELECT id FROM reports ORDER BY id DESC NULLS LAST LIMIT 10 OFFSET 5",
		},
		{
			name: "left join",
			sql:  "select a.id from reports a left join teams b on a.team_id = b.id",
			want: "SELECT a.id FROM reports AS a LEFT JOIN teams AS b ON (a.team_id = b.id)",
		},
		{
			name: "cross join",
			sql:  "select * from reports cross join teams",
			want: "SELECT * FROM reports CROSS JOIN teams",
		},
		{
			name: "join using",
			sql:  "select id from reports join teams using (team_id)",
			want: "SELECT id FROM reports INNER JOIN teams USING (team_id)",
		},
		{
			name: "union all",
			sql:  "select id from reports union all select id from teams",
			want: "SELECT id FROM reports UNION ALL SELECT id FROM teams",
		},
		{
			name: "chained union",
			sql:  "select id from a union select id from b union select id from c",
			want: "SELECT id FROM a UNION SELECT id FROM b UNION SELECT id FROM c",
		},
		{
			name: "chained except",
			sql:  "select id from a except select id from b except select id from c",
			want: "SELECT id FROM a EXCEPT SELECT id FROM b EXCEPT SELECT id FROM c",
		},
		{
			name: "mixed union all and union",
			sql:  "select id from a union all select id from b union select id from c",
			want: "SELECT id FROM a UNION ALL SELECT id FROM b UNION SELECT id FROM c",
		},
		{
			name: "intersect binds inside union",
			sql:  "select id from a union select id from b intersect select id from c",
			want: "SELECT id FROM a UNION SELECT id FROM b INTERSECT SELECT id FROM c",
		},
		{
			name: "intersect chain feeding a union",
			sql:  "select id from a intersect select id from b union select id from c",
			want: "SELECT id FROM a INTERSECT SELECT id FROM b UNION SELECT id FROM c",
		},
		{
			name: "cte",
			sql:  "with recent as (select id from reports) select * from recent",
			want: "WITH recent AS (SELECT id FROM reports) SELECT * FROM recent",
		},
		{
			name: "case expression",
			sql:  "select case when severity > 7 then 'high' else 'low' end from reports",
			want: "SELECT CASE WHEN (severity > 7) THEN 'high' ELSE 'low' END FROM reports",
		},
		{
			name: "cast",
			sql:  "select cast(id as text) from reports",
			want: "SELECT CAST(id AS text) FROM reports",
		},
		{
			name: "in list",
			sql:  "select id from reports where state in (1, 2, 3)",
			want: "SELECT id FROM reports WHERE (state IN (1, 2, 3))",
		},
		{
			name: "between",
			sql:  "select id from reports where severity between 1 and 10",
			want: "SELECT id FROM reports WHERE (severity BETWEEN 1 AND 10)",
		},
		{
			name: "ilike",
			sql:  "select id from reports where title ilike '%xss%'",
			want: "SELECT id FROM reports WHERE (title ILIKE '%xss%')",
		},
		{
			name: "is not null",
			sql:  "select id from reports where closed_at is not null",
			want: "SELECT id FROM reports WHERE (closed_at IS NOT NULL)",
		},
		{
			name: "exists subquery",
			sql:  "select id from teams where exists (select 1 from reports)",
			want: "SELECT id FROM teams WHERE EXISTS (SELECT 1 FROM reports)",
		},
		{
			name: "scalar subquery",
			sql:  "select (select count(*) from reports) from teams",
			want: "SELECT (SELECT count(*) FROM reports) FROM teams",
		},
		{
			name: "in subquery",
			sql:  "select id from teams where id in (select team_id from reports)",
			want: "SELECT id FROM teams WHERE (id IN (SELECT team_id FROM reports))",
		},
		{
			name: "not in subquery",
			sql:  "select id from teams where id not in (select team_id from reports)",
			want: "SELECT id FROM teams WHERE (NOT (id IN (SELECT team_id FROM reports)))",
		},
		{
			name: "window function",
			sql:  "select sum(amount) over (partition by team_id order by paid_at) from payments",
			want: "SELECT sum(amount) OVER (PARTITION BY team_id ORDER BY paid_at) FROM payments",
		},
		{
			name: "coalesce and nullif",
			sql:  "select coalesce(bounty, 0), nullif(state, 0) from reports",
			want: "SELECT coalesce(bounty, 0), nullif(state, 0) FROM reports",
		},
		{
			name: "unary minus",
			sql:  "select -balance from accounts",
			want: "SELECT (-balance) FROM accounts",
		},
		{
			name: "boolean and null literals",
			sql:  "select true, null from reports",
			want: "SELECT true, NULL FROM reports",
		},
		{
			name: "derived table",
			sql:  "select v.id from (select id from reports) v",
			want: "SELECT v.id FROM (SELECT id FROM reports) AS v",
		},
	}

	r := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := parse.Parse(tt.sql)
			require.NoError(t, err)
			stmt, err := r.Restrict(res)
			require.NoError(t, err)
			assert.Equal(t, tt.want, emit.Emit(stmt))
		})
	}
}

func TestRestrictRejects(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		kind string
	}{
		{"delete", "DELETE FROM reports", "DELETE statement"},
		{"insert", "INSERT INTO reports (id) VALUES (1)", "INSERT statement"},
		{"update", "UPDATE reports SET state = 1", "UPDATE statement"},
		{"drop", "DROP TABLE reports", "DDL statement"},
		{"create", "CREATE TABLE x (id int)", "DDL statement"},
		{"truncate", "TRUNCATE reports", "TRUNCATE statement"},
		{"explain", "EXPLAIN SELECT 1", "EXPLAIN statement"},
		{"multiple statements", "SELECT 1; SELECT 2", "multiple statements"},
		{"select into", "SELECT id INTO archived FROM reports", "SELECT INTO"},
		{"values list", "VALUES (1), (2)", "VALUES list"},
		{"for update", "SELECT id FROM reports FOR UPDATE", "row locking"},
		{"for share", "SELECT id FROM reports FOR SHARE", "row locking"},
		{"distinct on", "SELECT DISTINCT ON (team_id) id FROM reports", "DISTINCT ON"},
		{"recursive cte", "WITH RECURSIVE x AS (SELECT 1 AS n) SELECT * FROM x", "WITH RECURSIVE"},
		{"natural join", "SELECT id FROM reports NATURAL JOIN teams", "NATURAL join"},
		{"lateral", "SELECT * FROM teams, LATERAL (SELECT teams.id) x", "LATERAL subquery"},
		{"query parameter", "SELECT id FROM reports WHERE id = $1", "query parameter"},
		{"unknown function", "SELECT nextval('reports_id_seq')", `function "nextval"`},
		{"schema-qualified function", "SELECT myschema.myfunc(1)", "schema-qualified function"},
		{"aggregate filter", "SELECT count(*) FILTER (WHERE state = 1) FROM reports", "FILTER"},
		{"order by using", "SELECT id FROM reports ORDER BY id USING <", "ORDER BY USING"},
		{"named window", "SELECT sum(amount) OVER w FROM payments WINDOW w AS (PARTITION BY team_id)", "named WINDOW clause"},
		{"window frame", "SELECT sum(amount) OVER (ORDER BY id ROWS UNBOUNDED PRECEDING) FROM payments", "window frame"},
		{"is unknown", "SELECT id FROM reports WHERE closed IS UNKNOWN", "IS UNKNOWN"},
		{"catalog-qualified table", "SELECT id FROM db.public.reports", "catalog-qualified"},
		{"union grouped under intersect", "(SELECT id FROM a UNION SELECT id FROM b) INTERSECT SELECT id FROM c", "nested set operation grouping"},
		{"right-grouped except", "SELECT id FROM a EXCEPT (SELECT id FROM b EXCEPT SELECT id FROM c)", "nested set operation grouping"},
	}

	r := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := parse.Parse(tt.sql)
			require.NoError(t, err)
			_, err = r.Restrict(res)
			require.Error(t, err)
			var unsupported *UnsupportedConstructError
			require.ErrorAs(t, err, &unsupported)
			assert.Contains(t, unsupported.Kind, tt.kind)
		})
	}
}

func TestRestrictEmptyInput(t *testing.T) {
	res, err := parse.Parse("")
	require.NoError(t, err)
	_, err = New().Restrict(res)
	require.Error(t, err)
	var unsupported *UnsupportedConstructError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "empty statement", unsupported.Kind)
}

func TestRestrictFirstOffenderIsStable(t *testing.T) {
	// Two offending constructs; the clause-ordered walk must always name
	// the same one.
	const sql = "SELECT nextval('s') FROM reports FOR UPDATE"
	r := New()
	var first string
	for i := 0; i < 5; i++ {
		res, err := parse.Parse(sql)
		require.NoError(t, err)
		_, err = r.Restrict(res)
		require.Error(t, err)
		if i == 0 {
			first = err.Error()
			continue
		}
		assert.Equal(t, first, err.Error())
	}
}

func TestWithFunctionsExtendsWhitelist(t *testing.T) {
	res, err := parse.Parse("SELECT my_metric(id) FROM reports")
	require.NoError(t, err)

	_, err = New().Restrict(res)
	require.Error(t, err)

	res, err = parse.Parse("SELECT my_metric(id) FROM reports")
	require.NoError(t, err)
	_, err = New(WithFunctions("my_metric")).Restrict(res)
	assert.NoError(t, err)
}
