package scan

// Depth selects how much work a scan is allowed to do.
type Depth string

const (
	// DepthQuick caps the scan for interactive use.
	DepthQuick Depth = "quick"
	// DepthDeep raises the caps for thorough runs.
	DepthDeep Depth = "deep"
)

// Options configure one scan run.
type Options struct {
	Depth     Depth
	AIEnabled bool

	// Include and Exclude are glob-like patterns matched against paths.
	Include []string
	Exclude []string

	// Paths is an optional explicit allow-set; when non-empty only these
	// paths are considered.
	Paths []string

	// ExtraRiskKeywords augment the builtin risk-keyword set.
	ExtraRiskKeywords []string
}

// Caps bound scan work per depth; zero values take the defaults below.
type Caps struct {
	QuickMaxFiles   int
	QuickMaxAIFiles int
	DeepMaxFiles    int
	DeepMaxAIFiles  int
}

func (c Caps) withDefaults() Caps {
	if c.QuickMaxFiles <= 0 {
		c.QuickMaxFiles = 50
	}
	if c.QuickMaxAIFiles <= 0 {
		c.QuickMaxAIFiles = 10
	}
	if c.DeepMaxFiles <= 0 {
		c.DeepMaxFiles = 200
	}
	if c.DeepMaxAIFiles <= 0 {
		c.DeepMaxAIFiles = 30
	}
	return c
}

// limits resolves the effective caps for the options' depth.
func (c Caps) limits(depth Depth) (maxFiles, maxAIFiles int) {
	c = c.withDefaults()
	if depth == DepthDeep {
		return c.DeepMaxFiles, c.DeepMaxAIFiles
	}
	return c.QuickMaxFiles, c.QuickMaxAIFiles
}

// sourceExtensions are the file types worth scanning.
var sourceExtensions = map[string]bool{
	".go": true, ".ts": true, ".tsx": true, ".js": true, ".jsx": true,
	".py": true, ".rb": true, ".java": true, ".php": true, ".cs": true,
	".cpp": true, ".cc": true, ".c": true, ".h": true, ".rs": true,
	".kt": true, ".swift": true, ".scala": true, ".sql": true, ".sh": true,
	".yaml": true, ".yml": true, ".tf": true, ".env": true,
}

// manifestFiles are scanned regardless of extension.
var manifestFiles = map[string]bool{
	"package.json":       true,
	"go.mod":             true,
	"Dockerfile":         true,
	"docker-compose.yml": true,
	"requirements.txt":   true,
	"Gemfile":            true,
	"pom.xml":            true,
	"build.gradle":       true,
}
