package driver

const (
	SaveScopeQuery = `
		MERGE (s:Scope {id: $id})
		SET s.principle = $principle,
			s.comparative = $comparative,
			s.state = $state,
			s.error_kind = $error_kind,
			s.error = $error,
			s.final_output = $final_output,
			s.opened_at = $opened_at,
			s.closed_at = $closed_at
		RETURN s.id AS id
	`

	SaveOracleCallQuery = `
		MATCH (s:Scope {id: $scope_id})
		MERGE (c:OracleCall {id: $id})
		SET c.kind = $kind,
			c.input = $input,
			c.issued_by = $issued_by,
			c.issued_at = $issued_at,
			c.seq = $seq
		MERGE (s)-[:ISSUED]->(c)
		RETURN c.id AS id
	`

	SaveOracleResultQuery = `
		MATCH (s:Scope {id: $scope_id})
		MATCH (c:OracleCall {id: $call_id})
		MERGE (r:OracleResult {scope_id: $scope_id, validator_id: $validator_id})
		SET r.raw_output = $raw_output,
			r.kind = $kind,
			r.timestamp = $timestamp,
			r.seq = $seq
		MERGE (s)-[:RECEIVED]->(r)
		MERGE (r)-[:ANSWERS]->(c)
		RETURN r.validator_id AS validator_id
	`

	GetScopeQuery = `
		MATCH (s:Scope {id: $id})
		RETURN s.id AS id,
			s.principle AS principle,
			s.comparative AS comparative,
			s.state AS state,
			s.error_kind AS error_kind,
			s.error AS error,
			s.final_output AS final_output,
			s.opened_at AS opened_at,
			s.closed_at AS closed_at
	`

	GetScopeCallsQuery = `
		MATCH (s:Scope {id: $id})-[:ISSUED]->(c:OracleCall)
		RETURN c.id AS id,
			c.kind AS kind,
			c.input AS input,
			c.issued_by AS issued_by,
			c.issued_at AS issued_at
		ORDER BY c.seq
	`

	GetScopeResultsQuery = `
		MATCH (s:Scope {id: $id})-[:RECEIVED]->(r:OracleResult)-[:ANSWERS]->(c:OracleCall)
		RETURN r.validator_id AS validator_id,
			r.raw_output AS raw_output,
			r.kind AS kind,
			r.timestamp AS timestamp,
			c.id AS call_id
		ORDER BY r.seq
	`

	ListScopesQuery = `
		MATCH (s:Scope)
		WHERE $state = "" OR s.state = $state
		RETURN s.id AS id
		ORDER BY s.closed_at DESC
		LIMIT $limit
	`
)
