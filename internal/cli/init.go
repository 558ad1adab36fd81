package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath   string
	ManifestPath string
	Force        bool
	Verbose      bool
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample grape2openapi configuration file",
		Long: "Scaffold a commented grape2openapi configuration file that documents available options, " +
			"and optionally an example route manifest.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			manifest, err := cmd.Flags().GetString("manifest")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			cfg := &InitConfig{
				OutputPath:   out,
				ManifestPath: manifest,
				Force:        force,
				Verbose:      verbose,
			}
			return initRunner(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("out", "grape2openapi.yaml", "Where to write the sample config file")
	cmd.Flags().String("manifest", "", "Also write an example route manifest to this path")
	cmd.Flags().Bool("force", false, "Overwrite the target files if they already exist")

	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig) error {
	_ = ctx

	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = "grape2openapi.yaml"
	}
	if err := writeSample(out, sampleConfigYAML, cfg.Force); err != nil {
		return err
	}
	if manifest := strings.TrimSpace(cfg.ManifestPath); manifest != "" {
		if err := writeSample(manifest, sampleManifestYAML, cfg.Force); err != nil {
			return err
		}
	}
	return nil
}

func writeSample(path, content string, force bool) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	if st, err := os.Stat(absPath); err == nil && !force {
		if st.Mode().IsRegular() {
			return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
		}
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot create parent directory: %v", err))
	}

	// Atomic write via temp + rename
	tmp := absPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(strings.TrimSpace(content)+"\n"), 0o644); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot write temp file: %v\nHint: choose a different --out or check directory permissions.", err))
	}
	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return newUsageError(fmt.Sprintf("init: cannot place file at %s: %v", absPath, err))
	}
	fmt.Fprintf(os.Stdout, "Wrote %s\n", absPath)
	return nil
}

// sampleConfigYAML is a commented example config documenting available options.
const sampleConfigYAML = `# grape2openapi configuration (YAML)
# All fields are optional. GRAPE2OPENAPI_* environment variables override the
# defaults, this file overrides the environment, and command-line flags
# override this file.

# Path or URL to the route manifest exported by the Grape application.
# input: ./routes.yaml

# Path or URL to a hand-written OpenAPI 3 or Swagger 2 document whose
# security schemes, servers and extra paths should be kept.
# base: ./doc/api/base.yaml

# Output document path; "-" writes to stdout.
# out: ./openapi.yaml

# Output format (json|yaml). Derived from the out extension when omitted.
# format: yaml

# Path segment dropped before deriving tags, and the value substituted for
# :version in route paths.
# apiPrefix: api
# apiVersion: v4

# Document metadata.
# title: GitLab API
# version: v4
# description: REST API
# servers: [https://gitlab.example.com]

# Number of path groups converted in parallel.
# concurrency: 4

# Strip HTML from route descriptions.
# sanitize: true

# Also write schemas, paths and tags as separate files under fragments/.
# fragments: false

# Timeout for fetching remote inputs.
# httpTimeout: 10s

# Preview planned outputs without writing files.
# dryRun: false

# Overwrite existing output files.
# force: false

# Enable verbose logging.
# verbose: false
`

// sampleManifestYAML shows every accepted declaration shape.
const sampleManifestYAML = `# grape2openapi route manifest
config:
  apiPrefix: api
  apiVersion: v4

entities:
  - name: API::Entities::UserBasic
    attributes:
      - { name: id, type: Integer, example: 1 }
      - { name: username, type: String, example: root }
      - { name: avatar_url, type: String, desc: Avatar URL }
  - name: API::Entities::Project
    attributes:
      - { name: id, type: Integer }
      - { name: name, type: String }
      - { name: created_at, type: DateTime }
      - { name: owner, using: API::Entities::UserBasic }
      - { name: topics, type: String, isArray: true }
      - { name: weight, type: [Integer, String], desc: Project weight }

routes:
  - method: GET
    path: /api/:version/projects/:id(.:format)
    description: Get a single project
    tags: [projects]
    params:
      - { name: id, type: String, required: true, desc: The ID or URL-encoded path of the project }
      - { name: statistics, type: Boolean, default: false }
    success: API::Entities::Project
    failure:
      - [404, Not found]

  - method: POST
    path: /api/:version/projects(.:format)
    description: Create a project
    tags: [projects]
    params:
      - { name: name, type: String, required: true }
      - { name: visibility, type: String, values: [private, internal, public] }
      - { name: import_url, type: String }
      - { name: "settings[default_branch]", type: String }
    validations:
      - { attributes: [import_url], validator: regexp, options: "/^https?:\\/\\//" }
    success: { model: API::Entities::Project, code: 201, message: Created }
    failure:
      - { code: 400, message: Bad request }

  - method: GET
    path: /api/:version/users
    description: List users
    params:
      - { name: per_page, type: Integer, values: { min: 1, max: 100 } }
    success: { model: API::Entities::UserBasic, isArray: true }
`
