package aws

import (
	"fmt"
	"strconv"
	"strings"

	"ec2ctl/pkg/errors"
)

var (
	validRegionPrefixes = map[string]bool{
		"us": true, "eu": true, "ap": true, "ca": true,
		"sa": true, "me": true, "af": true, "il": true,
		"mx": true, "cn": true, "us-gov": true,
	}

	validRegionDirections = map[string]bool{
		"east": true, "west": true, "north": true, "south": true, "central": true,
		"northeast": true, "southeast": true, "northwest": true, "southwest": true,
	}
)

// IsValidAWSRegion validates if a string is a properly formatted AWS region.
// Valid formats:
//   - Standard: xx-xxxx-n (e.g., us-east-1, ca-central-1)
//   - GovCloud: us-gov-xxxx-n (e.g., us-gov-east-1)
func IsValidAWSRegion(region string) bool {
	parts := strings.Split(region, "-")
	if len(parts) == 4 && parts[0] == "us" && parts[1] == "gov" {
		parts = []string{"us-gov", parts[2], parts[3]}
	}
	if len(parts) != 3 {
		return false
	}

	if !validRegionPrefixes[parts[0]] || !validRegionDirections[parts[1]] {
		return false
	}
	if parts[0] == "us-gov" && parts[1] != "east" && parts[1] != "west" {
		return false
	}

	// Region numbers start at 1
	if len(parts[2]) > 2 || strings.HasPrefix(parts[2], "+") {
		return false
	}
	n, err := strconv.Atoi(parts[2])
	return err == nil && n >= 1
}

// IsValidRegionShortcode checks if a string is a known region shortcode (e.g., cac1, use1)
func IsValidRegionShortcode(shortcode string) bool {
	_, exists := RegionMapping[strings.ToLower(shortcode)]
	return exists
}

// ValidateRegionInput accepts either a shortcode (e.g., cac1) or a full region
// name (e.g., ca-central-1) and returns the full region name.
// An empty input is valid and means "let the SDK resolve the region".
func ValidateRegionInput(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", nil
	}

	if IsValidRegionShortcode(input) {
		return RegionMapping[strings.ToLower(input)], nil
	}

	if IsValidAWSRegion(input) {
		return input, nil
	}

	return "", errors.NewValidationError(fmt.Sprintf(
		"region '%s' is invalid: must be a valid AWS region (e.g., us-east-1, ca-central-1) or shortcode (e.g., use1, cac1)", input)).
		WithContext("field", "region")
}
