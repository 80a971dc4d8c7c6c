package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildVMTABlockContainsDomainOverrides(t *testing.T) {
	block := buildVMTABlock("vmta-example-com", "203.0.113.5", "mail.example.com", "")
	assert.Contains(t, block, "<virtual-mta vmta-example-com>")
	assert.Contains(t, block, "smtp-source-host 203.0.113.5 mail.example.com")
	assert.Contains(t, block, "<domain gmail.com>")
	assert.Contains(t, block, "<domain outlook.com>")
	assert.Contains(t, block, "</virtual-mta>")
	assert.NotContains(t, block, "dkim-sign", "no dkim key path means no dkim lines")
}

func TestBuildVMTABlockWithDKIM(t *testing.T) {
	block := buildVMTABlock("vmta-x", "203.0.113.5", "mail.example.com", "/etc/pmta/dkim/x.pem")
	assert.Contains(t, block, "dkim-sign yes")
	assert.Contains(t, block, "dkim-key-file /etc/pmta/dkim/x.pem")
}

func TestAppendAndRemoveBlockRoundTrips(t *testing.T) {
	base := "<pattern-list>\n</pattern-list>\n"
	block := buildVMTABlock("vmta-a", "203.0.113.5", "mail.example.com", "")
	withBlock := base + block

	names := listBlockNames(withBlock)
	assert.Equal(t, []string{"vmta-a"}, names)

	removed := removeBlock(withBlock, "vmta-a")
	assert.NotContains(t, removed, "vmta-a")
	assert.Empty(t, listBlockNames(removed))
}

func TestRemoveBlockLeavesOthersIntact(t *testing.T) {
	content := buildVMTABlock("vmta-a", "203.0.113.5", "a.example.com", "") +
		buildVMTABlock("vmta-b", "203.0.113.6", "b.example.com", "")

	removed := removeBlock(content, "vmta-a")
	assert.NotContains(t, removed, "vmta-a")
	assert.Contains(t, removed, "vmta-b")
	assert.Equal(t, []string{"vmta-b"}, listBlockNames(removed))
}

func TestRemoveBlockUnknownNameNoop(t *testing.T) {
	content := buildVMTABlock("vmta-a", "203.0.113.5", "a.example.com", "")
	assert.Equal(t, content, removeBlock(content, "vmta-does-not-exist"))
}

func TestSetBlockGenericRate(t *testing.T) {
	content := buildVMTABlock("vmta-a", "203.0.113.5", "a.example.com", "")
	updated, found := setBlockGenericRate(content, "vmta-a", 40)
	require.True(t, found)
	assert.Contains(t, updated, "max-msg-rate 40/h")

	_, found = setBlockGenericRate(content, "vmta-missing", 40)
	assert.False(t, found)
}

func TestSetBlockGenericRateOnlyTouchesGenericDomain(t *testing.T) {
	content := buildVMTABlock("vmta-a", "203.0.113.5", "a.example.com", "")
	updated, found := setBlockGenericRate(content, "vmta-a", 99)
	require.True(t, found)
	assert.Contains(t, updated, "max-msg-rate 99/h")
	assert.Contains(t, updated, "max-msg-rate 14/h", "gmail override untouched")
	assert.Contains(t, updated, "max-msg-rate 10/h", "outlook override untouched")
}

func TestPatternListInsertAndRemove(t *testing.T) {
	base := "<pattern-list>\n</pattern-list>\n"
	withEntry, err := insertPatternListLine(base, "sender@example.com", "vmta-example-com")
	require.NoError(t, err)
	assert.Contains(t, withEntry, "sender@example.com   vmta-example-com")

	name, ok := findSenderForVMTA(withEntry, "vmta-example-com")
	require.True(t, ok)
	assert.Equal(t, "sender@example.com", name)

	removed := removePatternListEntry(withEntry, "sender@example.com")
	assert.NotContains(t, removed, "sender@example.com")
	_, ok = findSenderForVMTA(removed, "vmta-example-com")
	assert.False(t, ok)
}

func TestInsertPatternListLineMissingMarker(t *testing.T) {
	_, err := insertPatternListLine("no markers here", "a@b.com", "vmta-a")
	assert.Error(t, err)
}
