package v1

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeCaseConcludedIgnoresUnknownFields(t *testing.T) {
	event := Envelope{
		EventType: TopicCaseConcluded,
		Data:      []byte(`{"case_id":"c1","final_case_id":"c2","election_id":"e1","slate_id":"s1","disposition":"upheld","sanction":"disqualify_slate","tier":2}`),
	}

	payload, err := event.DecodeCaseConcluded()
	require.NoError(t, err)
	require.Equal(t, CaseConcluded{
		CaseID:      "c1",
		FinalCaseID: "c2",
		ElectionID:  "e1",
		SlateID:     "s1",
		Disposition: "upheld",
		Sanction:    SanctionDisqualifySlate,
	}, payload)
}

func TestDecodeCaseConcludedRejectsMalformedData(t *testing.T) {
	_, err := Envelope{Data: []byte(`{"case_id":`)}.DecodeCaseConcluded()
	require.Error(t, err)
}
