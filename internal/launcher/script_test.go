// Copyright © 2026 Appyard Authors
// SPDX-License-Identifier: Apache-2.0

package launcher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appyard/appyard/internal/config"
	"github.com/appyard/appyard/internal/envs"
)

func newTestBuilder(t *testing.T) *Builder {
	b, err := NewBuilder(filepath.Join(t.TempDir(), "scripts"))
	require.NoError(t, err)
	return b
}

func buildAndRead(t *testing.T, b *Builder, def config.AppDefinition, steps envs.ActivationSteps) string {
	path, err := b.Build(def, steps)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestBuilder_Dashboard(t *testing.T) {
	b := newTestBuilder(t)

	content := buildAndRead(t, b, config.AppDefinition{
		Name:   "sales",
		Kind:   config.KindDashboard,
		Script: "/srv/apps/sales/app.py",
		Port:   8501,
	}, nil)

	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	assert.Equal(t, "#!/bin/bash", lines[0])
	assert.Contains(t, content, "cd \"/srv/apps/sales\"\n")
	assert.Contains(t, content, "exec streamlit run /srv/apps/sales/app.py --server.port=8501 --server.headless=true --server.fileWatcherType=none --browser.gatherUsageStats=false\n")
}

func TestBuilder_API(t *testing.T) {
	b := newTestBuilder(t)

	content := buildAndRead(t, b, config.AppDefinition{
		Name:   "orders-api",
		Kind:   config.KindAPI,
		Script: "/srv/apps/orders/main.py",
		Port:   9000,
	}, nil)

	assert.Contains(t, content, "exec uvicorn main:app --host 0.0.0.0 --port 9000\n")
}

func TestBuilder_Web(t *testing.T) {
	b := newTestBuilder(t)

	content := buildAndRead(t, b, config.AppDefinition{
		Name:   "site",
		Kind:   config.KindWeb,
		Script: "/srv/apps/site/serve.py",
		Port:   8080,
	}, nil)

	assert.Contains(t, content, "exec /srv/apps/site/serve.py --port 8080\n")
}

func TestBuilder_Script(t *testing.T) {
	b := newTestBuilder(t)

	content := buildAndRead(t, b, config.AppDefinition{
		Name:   "nightly",
		Kind:   config.KindScript,
		Script: "/srv/jobs/nightly.sh",
	}, nil)

	assert.Contains(t, content, "exec /srv/jobs/nightly.sh\n")
	assert.NotContains(t, content, "--port")
}

func TestBuilder_FlagsAppended(t *testing.T) {
	b := newTestBuilder(t)

	content := buildAndRead(t, b, config.AppDefinition{
		Name:   "sales",
		Kind:   config.KindDashboard,
		Script: "/srv/apps/sales/app.py",
		Port:   8501,
		Flags:  []string{"--theme.base=dark", "--", "extra arg"},
	}, nil)

	assert.Contains(t, content, "--browser.gatherUsageStats=false --theme.base=dark -- \"extra arg\"\n")
}

func TestBuilder_EnvVarsSorted(t *testing.T) {
	b := newTestBuilder(t)

	content := buildAndRead(t, b, config.AppDefinition{
		Name:   "nightly",
		Kind:   config.KindScript,
		Script: "/srv/jobs/nightly.sh",
		EnvVars: map[string]string{
			"ZED":   "last",
			"ALPHA": "first",
			"MID":   "val$ue",
		},
	}, nil)

	a := strings.Index(content, "export ALPHA=")
	m := strings.Index(content, "export MID=")
	z := strings.Index(content, "export ZED=")
	require.True(t, a >= 0 && m >= 0 && z >= 0)
	assert.True(t, a < m && m < z, "env exports should be sorted by key")
	assert.Contains(t, content, `export MID="val\$ue"`)
}

func TestBuilder_ActivationSteps(t *testing.T) {
	b := newTestBuilder(t)

	content := buildAndRead(t, b, config.AppDefinition{
		Name:   "nightly",
		Kind:   config.KindScript,
		Script: "/srv/jobs/nightly.sh",
	}, envs.ActivationSteps{
		{Kind: envs.StepRunInit, Args: []string{"source", "/opt/conda/etc/profile.d/conda.sh"}},
		{Kind: envs.StepRunInit, Args: []string{"conda", "activate", "sales"}},
		{Kind: envs.StepSetVar, Name: "VIRTUAL_ENV", Value: "/srv/venvs/sales"},
		{Kind: envs.StepPrependPath, Name: "/srv/venvs/sales/bin"},
	})

	init := strings.Index(content, "source /opt/conda/etc/profile.d/conda.sh\n")
	activate := strings.Index(content, "conda activate sales\n")
	cd := strings.Index(content, "cd \"/srv/jobs\"\n")
	require.True(t, init >= 0 && activate >= 0 && cd >= 0)
	assert.True(t, init < activate && activate < cd, "activation runs before cd")
	assert.Contains(t, content, "export VIRTUAL_ENV=\"/srv/venvs/sales\"\n")
	assert.Contains(t, content, "export PATH=\"/srv/venvs/sales/bin\":\"$PATH\"\n")
}

func TestBuilder_WorkDirOverride(t *testing.T) {
	b := newTestBuilder(t)

	content := buildAndRead(t, b, config.AppDefinition{
		Name:    "nightly",
		Kind:    config.KindScript,
		Script:  "/srv/jobs/nightly.sh",
		WorkDir: "/data/work",
	}, nil)

	assert.Contains(t, content, "cd \"/data/work\"\n")
}

func TestBuilder_Overwrite(t *testing.T) {
	b := newTestBuilder(t)

	def := config.AppDefinition{Name: "nightly", Kind: config.KindScript, Script: "/srv/jobs/old.sh"}
	first, err := b.Build(def, nil)
	require.NoError(t, err)

	def.Script = "/srv/jobs/new.sh"
	second, err := b.Build(def, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	data, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Contains(t, string(data), "new.sh")
	assert.NotContains(t, string(data), "old.sh")
}

func TestScriptPath_Sanitized(t *testing.T) {
	b := newTestBuilder(t)

	path := b.ScriptPath("sales report")
	assert.Equal(t, "sales_report.sh", filepath.Base(path))
}
