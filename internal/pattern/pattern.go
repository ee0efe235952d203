// Package pattern holds the pure naming conventions the pipeline is built
// around: which files count as deliverables, how job numbers are embedded in
// folder names, and how campaign/ad-set names are derived from remote paths.
package pattern

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// DefaultExtensions are the video file extensions accepted when no
// extensions are configured.
var DefaultExtensions = []string{".mp4"}

// minSegments is the minimum number of key=value segments a deliverable
// file name must carry.
const minSegments = 3

var jobFolderRe = regexp.MustCompile(`(?i)^j(\d+)_`)

// Matcher decides whether a file name is a deliverable to process.
type Matcher struct {
	extensions []string
}

// NewMatcher creates a Matcher for the given extensions. Extensions are
// matched case-insensitively and must include the leading dot. An empty
// list falls back to DefaultExtensions.
func NewMatcher(extensions []string) *Matcher {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	lowered := make([]string, len(extensions))
	for i, ext := range extensions {
		lowered[i] = strings.ToLower(ext)
	}
	return &Matcher{extensions: lowered}
}

// IsDeliverable reports whether name satisfies the tag=value naming grammar:
// underscore-separated segments starting with a key=value segment, at least
// three key=value segments in total, followed by a video file extension.
func (m *Matcher) IsDeliverable(name string) bool {
	base, ok := m.stripExtension(name)
	if !ok || base == "" {
		return false
	}

	segments := strings.Split(base, "_")
	if !isTagSegment(segments[0]) {
		return false
	}

	tagged := 0
	for _, seg := range segments {
		if isTagSegment(seg) {
			tagged++
		}
	}
	return tagged >= minSegments
}

// stripExtension removes a recognized video extension, case-insensitively.
func (m *Matcher) stripExtension(name string) (string, bool) {
	lower := strings.ToLower(name)
	for _, ext := range m.extensions {
		if strings.HasSuffix(lower, ext) {
			return name[:len(name)-len(ext)], true
		}
	}
	return "", false
}

// isTagSegment reports whether seg has the form key=value with a non-empty
// key and value. Only the first '=' splits key from value so values may
// themselves contain '='.
func isTagSegment(seg string) bool {
	k, v, found := strings.Cut(seg, "=")
	return found && k != "" && v != ""
}

// JobNumber extracts the numeric job id from a folder name of the form
// "J<digits>_..." (case-insensitive).
func JobNumber(folderName string) (int, bool) {
	m := jobFolderRe.FindStringSubmatch(folderName)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// JobNumberFromPath extracts the job number from the first job folder
// segment of a remote path.
func JobNumberFromPath(remotePath string) (int, bool) {
	for _, seg := range strings.Split(remotePath, "/") {
		if n, ok := JobNumber(seg); ok {
			return n, true
		}
	}
	return 0, false
}

// AdSetName derives the ad-set (and ad) name for a video file: the file
// name with its extension removed.
func AdSetName(fileName string) string {
	ext := path.Ext(fileName)
	return strings.TrimSuffix(fileName, ext)
}

// CampaignSuffix derives the campaign name suffix from a remote file path:
// the job folder segment with its "J<digits>_" prefix stripped. Returns ""
// when no segment of the path looks like a job folder.
func CampaignSuffix(remotePath string) string {
	for _, seg := range strings.Split(remotePath, "/") {
		if jobFolderRe.MatchString(seg) {
			return jobFolderRe.ReplaceAllString(seg, "")
		}
	}
	return ""
}

// TargetCampaignName builds the job-scoped campaign name: the template
// campaign name followed by the job number, plus "_<suffix>" when a suffix
// was derived from the source path.
func TargetCampaignName(templateName string, jobNumber int, suffix string) string {
	name := fmt.Sprintf("%s%d", templateName, jobNumber)
	if suffix != "" {
		name += "_" + suffix
	}
	return name
}
