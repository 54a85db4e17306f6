package config

// DefaultConfigYAML contains the default configuration YAML content,
// written by `conclave init`. Values not specified here use built-in
// defaults.
const DefaultConfigYAML = `# Conclave configuration
#
# Values not specified here use sensible defaults.

# Expert panel. Omit to use the built-in six-expert panel.
# panel:
#   experts:
#     - id: architect
#       name: Architecture Strategist
#       capabilities: [architecture, design, api]
#       weight: 0.20
#       domain: design

# Dispatch budgets
dispatch:
  expert_timeout: 200ms
  consensus_deadline: 400ms
  singular_deadline: 200ms
  max_concurrent: 8

# Relevance weighting strategy: balanced, quality_focused,
# workflow_focused, or adaptive (picks a profile per request).
weights:
  strategy: adaptive

# Consensus resolution policy
consensus:
  threshold: 0.70
  breadth_bonus: 0.03
  agreement_bonus: 0.05
  max_confidence: 0.98

# Reasoning providers
providers:
  default: claude
  claude:
    enabled: true
    path: claude
    model: claude-sonnet-4-20250514
  codex:
    enabled: false
    path: codex
    model: gpt-5.1-codex
  gemini:
    enabled: false
    model: gemini-2.5-flash
    api_key_env: GEMINI_API_KEY
  http:
    enabled: false
    base_url: http://localhost:11434/v1
    model: llama3

# Outcome history: sqlite, json, or off
history:
  backend: sqlite
  path: .conclave/history.db

# HTTP API server (conclave serve)
server:
  host: 127.0.0.1
  port: 8600

# Filesystem watch triggers (conclave watch)
watch:
  paths: ["."]
  debounce: 500ms
`
