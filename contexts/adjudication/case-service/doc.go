// Package caseservice implements the adjudication workflow for complaints and
// challenges raised during an election.
//
// The module owns the case registry state machine, the submission ledger and
// its deadline windows, committee voting with quorum and tie-break, and the
// appeal chain between instances. Each state change commits with its history
// record and outbox events in one per-case unit of work; the outbox relay
// publishes them, and case.concluded tells the tally context that a dispute
// chain reached its final disposition.
package caseservice
