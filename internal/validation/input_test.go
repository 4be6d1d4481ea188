package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateContractID(t *testing.T) {
	assert.NoError(t, ValidateContractID("C1"))
	assert.NoError(t, ValidateContractID(strings.Repeat("a", MaxContractIDLength)))

	assert.Error(t, ValidateContractID(""))
	assert.Error(t, ValidateContractID(strings.Repeat("a", MaxContractIDLength+1)))
	assert.Error(t, ValidateContractID("a/b"))
	assert.Error(t, ValidateContractID("with space"))
}

func TestValidatePartyID(t *testing.T) {
	assert.NoError(t, ValidatePartyID("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"))
	assert.Error(t, ValidatePartyID(""))
	assert.Error(t, ValidatePartyID("bob\n"))
}

func TestValidateProofURI(t *testing.T) {
	assert.NoError(t, ValidateProofURI("ipfs://QmProof"))
	assert.NoError(t, ValidateProofURI("https://example.com/result.zip"))

	assert.Error(t, ValidateProofURI(""))
	assert.Error(t, ValidateProofURI("   "))
	assert.Error(t, ValidateProofURI("no-scheme"))
	assert.Error(t, ValidateProofURI("https://x/"+strings.Repeat("a", MaxProofURILength)))
}

func TestValidateDisputeReason(t *testing.T) {
	assert.NoError(t, ValidateDisputeReason(""))
	assert.NoError(t, ValidateDisputeReason("работа не выполнена"))
	assert.NoError(t, ValidateDisputeReason(strings.Repeat("я", MaxDisputeReasonLength)))
	assert.Error(t, ValidateDisputeReason(strings.Repeat("я", MaxDisputeReasonLength+1)))
}

func TestValidateMilestoneRef(t *testing.T) {
	assert.NoError(t, ValidateMilestoneRef(""))
	assert.NoError(t, ValidateMilestoneRef("m-1"))
	assert.Error(t, ValidateMilestoneRef(strings.Repeat("x", MaxMilestoneRefLength+1)))
}
