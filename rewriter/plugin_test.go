package rewriter

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/tools/txtar"
)

func loadCase(t *testing.T, path string) (id, input string, want *string) {
	t.Helper()
	ar, err := txtar.ParseFile(path)
	require.NoError(t, err)
	for _, f := range ar.Files {
		data := string(f.Data)
		switch f.Name {
		case "id":
			id = strings.TrimSpace(data)
		case "input.js":
			input = data
		case "want.js":
			want = &data
		}
	}
	require.NotEmpty(t, input, "%s has no input.js", path)
	return id, input, want
}

func TestTransformFixtures(t *testing.T) {
	files, err := filepath.Glob("testdata/*.txtar")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	p := Default()
	for _, file := range files {
		t.Run(strings.TrimSuffix(filepath.Base(file), ".txtar"), func(t *testing.T) {
			id, input, want := loadCase(t, file)
			got := p.Transform(input, id)
			if want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *want, got.Code)
			assert.Nil(t, got.Map)
		})
	}
}

func TestTransformNoMatchIsStable(t *testing.T) {
	p := Default()
	inputs := []string{
		"",
		"const x = 1\n",
		`import { createVuetify } from "vuetify"`,
		`import a from "vue/dist/vue.js"`,
		`from 'vuetify/'`,
		"export default {}\n",
	}
	for _, in := range inputs {
		assert.Nil(t, p.Transform(in, "/app/src/a.js"), "input %q", in)
		assert.Nil(t, p.Transform(in, "/app/src/a.js"), "second call on %q", in)
	}
}

func TestTransformDeepImportCollapse(t *testing.T) {
	p := Default()
	subPaths := []string{"components", "directives", "lib/components/VBtn", "labs/VDataTable", "locale/adapters/vue-i18n"}
	for _, sub := range subPaths {
		for _, q := range []string{`"`, `'`} {
			in := "import x from " + q + "vuetify/" + sub + q + "\n"
			got := p.Transform(in, "/app/src/x.js")
			require.NotNil(t, got, "input %q", in)
			assert.Equal(t, "import x from \"vuetify/dist/vuetify.js\"\n", got.Code)
			assert.Equal(t, []string{RuleDeepImport}, got.Rules)
		}
	}
}

func TestTransformMultipleOccurrences(t *testing.T) {
	p := Default()
	in := strings.Join([]string{
		`import a from "vuetify/components"`,
		`import b from 'vuetify/directives'`,
		`import c from "vuetify/blueprints"`,
	}, "\n")
	got := p.Transform(in, "/app/src/x.js")
	require.NotNil(t, got)
	assert.Equal(t, 3, strings.Count(got.Code, `from "vuetify/dist/vuetify.js"`))
	assert.NotContains(t, got.Code, "components")
}

func TestTransformStylesWithoutSemicolon(t *testing.T) {
	p := Default()
	got := p.Transform("import 'vuetify/styles'", "/app/src/main.js")
	require.NotNil(t, got)
	assert.Equal(t, "import './assets/vuetify-styles.css';", got.Code)
	assert.Equal(t, []string{RuleStyles}, got.Rules)
}

func TestTransformNonInterference(t *testing.T) {
	p := Default()
	deep := `import * as c from "vuetify/components"`
	styles := `import "vuetify/styles";`
	for _, in := range []string{deep + "\n" + styles, styles + "\n" + deep} {
		got := p.Transform(in, "/app/src/main.js")
		require.NotNil(t, got)
		assert.Equal(t, 1, strings.Count(got.Code, `"vuetify/dist/vuetify.js"`))
		assert.Equal(t, 1, strings.Count(got.Code, `'./assets/vuetify-styles.css'`))
		assert.ElementsMatch(t, []string{RuleDeepImport, RuleStyles}, got.Rules)
	}
}

func TestTransformInspectedBranch(t *testing.T) {
	p := Default()
	in := "import { VBtn } from 'vuetify/components'\nexport { VBtn }\n"

	got := p.Transform(in, "/repo/node_modules/vuetify/lib/index.mjs")
	require.NotNil(t, got)
	assert.True(t, got.Inspected)
	assert.Equal(t, in, got.Code)
	assert.Empty(t, got.Rules)

	// Without an export the library module falls through to the rules.
	noExport := "import { VBtn } from 'vuetify/components'\n"
	got = p.Transform(noExport, "/repo/node_modules/vuetify/lib/index.mjs")
	require.NotNil(t, got)
	assert.False(t, got.Inspected)
	assert.Contains(t, got.Code, "vuetify/dist/vuetify.js")
}

func TestTransformConcurrent(t *testing.T) {
	p := Default()
	in := "import 'vuetify/styles'\nimport a from 'vuetify/components'\n"
	want := p.Transform(in, "/app/src/main.js").Code

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.Equal(t, want, p.Transform(in, "/app/src/main.js").Code)
			}
		}()
	}
	wg.Wait()
}

func TestNewCustomTarget(t *testing.T) {
	p, err := New(Target{
		Package:      "@acme/ui.kit",
		PathFragment: "node_modules/@acme/ui.kit/",
		DistEntry:    "@acme/ui.kit/dist/kit.es.js",
		StylesPath:   "./vendor/kit.css",
	})
	require.NoError(t, err)

	got := p.Transform("import b from '@acme/ui.kit/button'\nimport '@acme/ui.kit/styles'\n", "/src/a.ts")
	require.NotNil(t, got)
	assert.Equal(t, "import b from \"@acme/ui.kit/dist/kit.es.js\"\nimport './vendor/kit.css';\n", got.Code)

	// Regexp metacharacters in the package name are matched literally.
	assert.Nil(t, p.Transform("import b from '@acme/uixkit/button'\n", "/src/a.ts"))
}

func TestNewRejectsIncompleteTarget(t *testing.T) {
	for _, mutate := range []func(*Target){
		func(t *Target) { t.Package = "" },
		func(t *Target) { t.PathFragment = "" },
		func(t *Target) { t.DistEntry = "" },
		func(t *Target) { t.StylesPath = "" },
		func(t *Target) { t.DistEntry = `vuetify/"dist` },
	} {
		target := DefaultTarget()
		mutate(&target)
		_, err := New(target)
		assert.ErrorIs(t, err, ErrInvalidTarget)
	}
}

func TestConfigResolvedLogsOnce(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := Default(WithLogger(zap.New(core)))

	p.ConfigResolved(ResolvedConfig{Root: "/app", Mode: "production"})
	for i := 0; i < 3; i++ {
		p.Transform("import 'vuetify/styles'", "/app/src/main.js")
	}

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Import map plugin activated for production build", entries[0].Message)
	assert.Equal(t, PluginName, p.Name())
}
