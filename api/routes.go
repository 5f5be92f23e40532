package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"

	// CensusURLParam is the census uuid parameter
	CensusURLParam = "censusId"
	// CensusesEndpoint creates a new census
	CensusesEndpoint = "/censuses"
	// CensusParticipantsEndpoint adds identity commitments to a census
	CensusParticipantsEndpoint = "/censuses/{" + CensusURLParam + "}/participants"
	// CensusRootEndpoint returns the root and size of a census
	CensusRootEndpoint = "/censuses/{" + CensusURLParam + "}/root"
	// CensusProofEndpoint returns the membership proof of ?index=
	CensusProofEndpoint = "/censuses/{" + CensusURLParam + "}/proof"

	// PollURLParam is the hex poll ID parameter
	PollURLParam = "pollId"
	// PollsEndpoint creates a new poll
	PollsEndpoint = "/polls"
	// PollEndpoint returns the poll info
	PollEndpoint = "/polls/{" + PollURLParam + "}"
	// PollCloseEndpoint stops accepting ballots
	PollCloseEndpoint = "/polls/{" + PollURLParam + "}/close"
	// PollTallyEndpoint decrypts the aggregate and proves the tally
	PollTallyEndpoint = "/polls/{" + PollURLParam + "}/tally"
	// PollResultsEndpoint returns the published tally with its proof
	PollResultsEndpoint = "/polls/{" + PollURLParam + "}/results"

	// VotesEndpoint is the endpoint for submitting a vote
	VotesEndpoint = "/votes"
	// NullifierURLParam is the decimal nullifier parameter
	NullifierURLParam = "nullifier"
	// VoteStatusEndpoint returns the status of a ballot by its nullifier
	VoteStatusEndpoint = "/votes/{" + PollURLParam + "}/nullifier/{" + NullifierURLParam + "}"
)
