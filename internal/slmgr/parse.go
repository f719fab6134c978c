package slmgr

import (
	"bufio"
	"strings"

	"github.com/opsdeploy/mak2kms/internal/model"
)

// parseStatus extracts the OS activation state from /dlv output. Only the
// explicitly registered KMS machine counts as a target; a server found via
// DNS auto-discovery is reported on a different line and left empty here.
func parseStatus(output string) *model.ActivationStatus {
	st := &model.ActivationStatus{Product: model.ProductWindows}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "name:"):
			st.LicenseName = lineValue(line)
		case strings.HasPrefix(lower, "description:"):
			st.Channel = lineValue(line)
			st.IsMAK = strings.Contains(st.Channel, "MAK")
		case strings.HasPrefix(lower, "partial product key:"):
			st.Last5 = lineValue(line)
		case strings.HasPrefix(lower, "registered kms machine name:"):
			st.KMSHost = lineValue(line)
		}
	}
	return st
}

func lineValue(line string) string {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
