package node

import (
	"fmt"
	"strings"
)

// buildVMTABlock renders a virtual-mta block with a generic rate plus
// per-destination-domain overrides for the gmail/outlook families, mirroring
// the pool-config generator's block shape adapted to a single per-IP vmta.
func buildVMTABlock(name, ip, hostname, dkimKeyPath string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n<virtual-mta %s>\n", name)
	fmt.Fprintf(&sb, "    smtp-source-host %s %s\n", ip, hostname)
	if dkimKeyPath != "" {
		fmt.Fprintf(&sb, "    dkim-sign yes\n")
		fmt.Fprintf(&sb, "    dkim-key-file %s\n", dkimKeyPath)
	}
	fmt.Fprintf(&sb, "    <domain *>\n")
	fmt.Fprintf(&sb, "        max-msg-rate 20/h\n")
	fmt.Fprintf(&sb, "        max-smtp-out 10\n")
	fmt.Fprintf(&sb, "    </domain>\n")
	for _, d := range []string{"gmail.com", "googlemail.com"} {
		fmt.Fprintf(&sb, "    <domain %s>\n", d)
		fmt.Fprintf(&sb, "        max-msg-rate 14/h\n")
		fmt.Fprintf(&sb, "        max-smtp-out 4\n")
		fmt.Fprintf(&sb, "    </domain>\n")
	}
	for _, d := range []string{"outlook.com", "hotmail.com", "live.com", "msn.com"} {
		fmt.Fprintf(&sb, "    <domain %s>\n", d)
		fmt.Fprintf(&sb, "        max-msg-rate 10/h\n")
		fmt.Fprintf(&sb, "        max-smtp-out 3\n")
		fmt.Fprintf(&sb, "    </domain>\n")
	}
	fmt.Fprintf(&sb, "</virtual-mta>\n")
	return sb.String()
}

// removeBlock deletes the <virtual-mta name>...</virtual-mta> block, from
// its opening tag through its closing tag inclusive, from content,
// returning the content unchanged if name isn't found.
func removeBlock(content, name string) string {
	lines := strings.Split(content, "\n")
	var out []string
	open := fmt.Sprintf("<virtual-mta %s>", name)
	skip := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !skip && trimmed == open {
			skip = true
			continue
		}
		if skip {
			if trimmed == "</virtual-mta>" {
				skip = false
			}
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// setBlockGenericRate rewrites the max-msg-rate line inside the block's
// first <domain *> section. Returns found=false if the block doesn't exist.
func setBlockGenericRate(content, name string, ratePerHour int) (string, bool) {
	lines := strings.Split(content, "\n")
	open := fmt.Sprintf("<virtual-mta %s>", name)
	inBlock, inGenericDomain, found := false, false, false

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == open:
			inBlock = true
		case inBlock && trimmed == "</virtual-mta>":
			inBlock = false
		case inBlock && trimmed == "<domain *>":
			inGenericDomain = true
		case inGenericDomain && trimmed == "</domain>":
			inGenericDomain = false
		case inGenericDomain && strings.HasPrefix(trimmed, "max-msg-rate "):
			indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
			lines[i] = fmt.Sprintf("%smax-msg-rate %d/h", indent, ratePerHour)
			found = true
		}
	}
	if !found {
		return content, false
	}
	return strings.Join(lines, "\n"), true
}

// listBlockNames returns every <virtual-mta NAME> name in content, in
// config-file order.
func listBlockNames(content string) []string {
	var names []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "<virtual-mta ") && strings.HasSuffix(trimmed, ">") {
			name := strings.TrimSuffix(strings.TrimPrefix(trimmed, "<virtual-mta "), ">")
			names = append(names, name)
		}
	}
	return names
}

// insertPatternListLine inserts "{senderEmail}   {vmtaName}" immediately
// before the </pattern-list> marker. Fails if the marker is absent.
func insertPatternListLine(content, senderEmail, vmtaName string) (string, error) {
	idx := strings.Index(content, patternListClose)
	if idx < 0 {
		return "", fmt.Errorf("no %s marker in node config", patternListClose)
	}
	entry := fmt.Sprintf("%s   %s\n", senderEmail, vmtaName)
	return content[:idx] + entry + content[idx:], nil
}

// removePatternListEntry deletes the line whose first field equals
// senderEmail from the pattern-list block.
func removePatternListEntry(content, senderEmail string) string {
	lines := strings.Split(content, "\n")
	var out []string
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == senderEmail {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// findSenderForVMTA scans the pattern-list for an entry whose second field
// equals vmtaName.
func findSenderForVMTA(content, vmtaName string) (string, bool) {
	for _, line := range strings.Split(content, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == vmtaName {
			return fields[0], true
		}
	}
	return "", false
}
