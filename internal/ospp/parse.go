package ospp

import (
	"bufio"
	"strings"

	"github.com/opsdeploy/mak2kms/internal/model"
)

// parseStatuses extracts one ActivationStatus per installed key from
// /dstatus output. Blocks are separated by dashed rule lines; entries
// without an installed key (no "Last 5 characters" line) are skipped.
// Only the registry override counts as a KMS target, mirroring the OS side.
func parseStatuses(output string) []model.ActivationStatus {
	var statuses []model.ActivationStatus
	var cur model.ActivationStatus

	flush := func() {
		if cur.Last5 != "" {
			cur.Product = classifyProduct(cur.LicenseName)
			statuses = append(statuses, cur)
		}
		cur = model.ActivationStatus{}
	}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if isRule(line) {
			flush()
			continue
		}
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "license name:"):
			cur.LicenseName = lineValue(line)
		case strings.HasPrefix(lower, "license description:"):
			cur.Channel = lineValue(line)
			cur.IsMAK = strings.Contains(cur.Channel, "MAK")
		case strings.HasPrefix(lower, "last 5 characters of installed product key:"):
			cur.Last5 = lineValue(line)
		case strings.HasPrefix(lower, "kms machine registry override defined:"):
			cur.KMSHost = lineValue(line)
		}
	}
	flush()
	return statuses
}

// isRule matches the all-dash separators between license blocks, but not the
// "---Processing---" style banner lines.
func isRule(line string) bool {
	return line != "" && strings.Trim(line, "-") == ""
}

func classifyProduct(licenseName string) model.Product {
	switch {
	case strings.Contains(licenseName, "Visio"):
		return model.ProductVisio
	case strings.Contains(licenseName, "Project"):
		return model.ProductProject
	default:
		return model.ProductOffice
	}
}

func lineValue(line string) string {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
