// Package build drives one compile: lexing and parsing every module file
// into a shared symbol table, running the resolution passes, wiring
// derived relationships, then emitting C++, SQL, and the translation
// catalog. One Driver runs one model build end to end.
package build

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/openmpp/ompc/internal/codegen/cpp"
	"github.com/openmpp/ompc/internal/codegen/sql"
	"github.com/openmpp/ompc/internal/config"
	"github.com/openmpp/ompc/internal/diag"
	"github.com/openmpp/ompc/internal/digest"
	"github.com/openmpp/ompc/internal/i18n"
	"github.com/openmpp/ompc/internal/lexer"
	"github.com/openmpp/ompc/internal/markup"
	"github.com/openmpp/ompc/internal/parsectx"
	"github.com/openmpp/ompc/internal/parser"
	"github.com/openmpp/ompc/internal/srcfile"
	"github.com/openmpp/ompc/internal/symtab"
	"github.com/openmpp/ompc/internal/wiring"
)

// rngFunctionNames is the configured vocabulary of RNG-stream-consuming
// calls parsectx watches for, grounded on the two calls that actually
// appear in the original runtime's model sources (RandUniform, RandNormal);
// a model introducing another stream-consuming function adds its name here.
var rngFunctionNames = []string{"RandUniform", "RandNormal"}

// sqlReservedWords seeds digest.NewAssigner so generated identifiers never
// collide with a keyword any configured provider reserves.
var sqlReservedWords = []string{
	"SELECT", "INSERT", "UPDATE", "DELETE", "TABLE", "INDEX", "VIEW",
	"WHERE", "GROUP", "ORDER", "LIMIT", "FROM", "JOIN", "PRIMARY", "KEY",
}

// Result is everything a build produced, for the caller (cmd/ompc) to
// report and map to an exit code.
type Result struct {
	Diagnostics *diag.Diagnostics
	EntityFiles []string
	SQLFiles    []string
	MessageIni  string
}

// Logger is the subset of *obslog.Logger a Driver needs, kept as an
// interface so this package never imports obslog directly.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Driver runs one build against opts.
type Driver struct {
	Opts config.Options
	Log  Logger
}

// Run discovers every *.mpp file under Opts.SourceDir, compiles them into
// one symbol table, and emits the configured artifacts into Opts.OutputDir.
// It returns a Result even on compile failure, so the caller can still
// inspect diagnostics; a non-nil error is reserved for I/O failures
// unrelated to the model source itself.
func (d *Driver) Run() (*Result, error) {
	diags := &diag.Diagnostics{}
	tbl := symtab.New()
	ctx := parsectx.New(rngFunctionNames, diags)

	files, err := d.moduleFiles()
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	var comments *lexer.Comments
	for _, path := range files {
		src, err := srcfile.Read(path)
		if err != nil {
			diags.Errorf(diag.PhaseIO, diag.Pos{File: path}, "", "reading source file: %v", err)
			continue
		}
		lex := lexer.New(path, src, comments, nil)
		comments = lex.Comments()
		p := parser.New(lex, ctx, tbl, diags)
		p.Parse()
	}

	tbl.RunPasses(symtab.AllPasses, diags)
	if diags.HasFatal() {
		return &Result{Diagnostics: diags}, nil
	}

	wiring.Wire(tbl, ctx.IdentifierUses, ctx.PointerUses)

	result := &Result{Diagnostics: diags}
	if err := os.MkdirAll(d.Opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("build: create output dir: %w", err)
	}

	entityFiles, err := d.emitCpp(tbl, diags)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	result.EntityFiles = entityFiles

	if d.Opts.IndexErrors {
		if err := d.markupFiles(tbl, entityFiles); err != nil {
			return nil, fmt.Errorf("build: %w", err)
		}
	}

	sqlFiles, err := d.emitSQL(tbl)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	result.SQLFiles = sqlFiles

	if d.Opts.MessageIniIn != "" || len(d.Opts.Languages) > 0 {
		messagePath, err := d.mergeMessageCatalog(comments)
		if err != nil {
			return nil, fmt.Errorf("build: %w", err)
		}
		result.MessageIni = messagePath
	}

	return result, nil
}

// moduleFiles lists every *.mpp file under Opts.SourceDir, sorted so a
// build is deterministic regardless of directory-read order.
func (d *Driver) moduleFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(d.Opts.SourceDir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() && filepath.Ext(path) == ".mpp" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no .mpp source files found under %s", d.Opts.SourceDir)
	}
	return files, nil
}

func (d *Driver) emitCpp(tbl *symtab.Table, diags *diag.Diagnostics) ([]string, error) {
	emitter := cpp.New(tbl, cpp.Options{EventTrace: d.Opts.EventTrace})

	var written []string
	for _, sym := range tbl.Symbols() {
		if sym.Kind != symtab.KindEntity {
			continue
		}
		class, err := emitter.EmitEntityClass(sym.Entity)
		if err != nil {
			diags.Errorf(diag.PhaseCodegenCpp, diag.Pos{}, sym.Name, "%v", err)
			continue
		}
		outPath := filepath.Join(d.Opts.OutputDir, sym.Name+".ompp.cpp")
		if err := os.WriteFile(outPath, []byte(class), 0o644); err != nil {
			return nil, err
		}
		written = append(written, outPath)
		d.Log.Info("generated entity class", "entity", sym.Name, "path", outPath)
	}
	return written, nil
}

func (d *Driver) markupFiles(tbl *symtab.Table, files []string) error {
	shapes := markup.ShapesFromParameters(tbl)
	patterns, err := markup.BuildPatterns(shapes)
	if err != nil {
		return err
	}
	if len(patterns) == 0 {
		return nil
	}
	for _, path := range files {
		if err := markup.ApplyToFile(path, patterns); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) emitSQL(tbl *symtab.Table) ([]string, error) {
	providers := d.Opts.Providers
	if len(providers) == 0 {
		providers = []string{string(sql.ProviderMySQL)}
	}

	names := digest.NewAssigner(sqlReservedWords)
	modelDigest := digest.ModelDigest(d.Opts.ModelName)

	var written []string
	for _, providerName := range providers {
		gen, err := sql.GeneratorFor(sql.Provider(providerName))
		if err != nil {
			return nil, err
		}
		builder := sql.NewModelSqlBuilder(gen, tbl, names, d.Opts.ModelName, modelDigest)

		createModel, err := builder.CreateModelScript()
		if err != nil {
			return nil, err
		}
		scripts := map[string]string{
			"create_model":  createModel,
			"create_tables": builder.CreateTablesScript(),
			"create_views":  builder.CreateViewsScript(),
			"drop_tables":   builder.DropTablesScript(),
			"drop_views":    builder.DropViewsScript(),
		}
		for name, content := range scripts {
			outPath := filepath.Join(d.Opts.OutputDir, fmt.Sprintf("%s.%s.sql", name, providerName))
			if err := os.WriteFile(outPath, []byte(content), 0o644); err != nil {
				return nil, err
			}
			written = append(written, outPath)
		}

		if sql.Provider(providerName) == sql.ProviderSQLite {
			dbPath := filepath.Join(d.Opts.OutputDir, d.Opts.ModelName+".sqlite")
			if err := sql.WriteSQLiteArtifact(dbPath, scripts["create_model"], scripts["create_tables"]); err != nil {
				return nil, err
			}
			written = append(written, dbPath)
			d.Log.Info("built sqlite artifact", "path", dbPath)
		}
	}
	return written, nil
}

func (d *Driver) mergeMessageCatalog(comments *lexer.Comments) (string, error) {
	languages := d.Opts.Languages
	if len(languages) == 0 {
		languages = []string{"EN"}
	}

	current := map[string]string{}
	if comments != nil {
		for _, call := range comments.Strings {
			current[call.Text] = call.Text
		}
	}

	var existing i18n.Catalog
	if d.Opts.MessageIniIn != "" {
		if data, err := os.ReadFile(d.Opts.MessageIniIn); err == nil {
			existing = i18n.Parse(string(data))
		} else if !os.IsNotExist(err) {
			return "", err
		}
	}

	merged, result := i18n.Merge(languages, current, existing)
	for lang, n := range result.Deleted {
		d.Log.Warn("dropped messages no longer produced by the model", "language", lang, "count", n)
	}
	for lang, n := range result.MissingTranslations {
		d.Log.Warn("messages missing translation", "language", lang, "count", n)
	}
	for _, lang := range result.MissingLanguages {
		d.Log.Info("no prior catalog section for language, starting fresh", "language", lang)
	}

	outPath := filepath.Join(d.Opts.OutputDir, d.Opts.ModelName+".message.ini")
	if err := os.WriteFile(outPath, []byte(i18n.Write(languages, merged)), 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}
