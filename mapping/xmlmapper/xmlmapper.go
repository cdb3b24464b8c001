// Package xmlmapper parses the mapping XML document grammar of// into MappedStatements, ResultMaps and SqlSources, registered into a
// mapping.Configuration. It mirrors the annotated-interface builder in
// mapping/annotation but drives from encoding/xml instead of Go struct
// literals.
package xmlmapper

import (
	"encoding/xml"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/wolfleong/gobatis/cachedec"
	"github.com/wolfleong/gobatis/dynamicsql"
	"github.com/wolfleong/gobatis/mapping"
	"github.com/wolfleong/gobatis/merr"
)

// rawElement is a generic element shape (name, attributes, inner XML).
// RegisterXML does not use it: documents decode into mapperDoc, and
// <include> expansion works on the statements' raw inner XML text.
type rawElement struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Content []byte     `xml:",innerxml"`
}

// TypeResolver resolves a mapping document's "type"/"resultType"/
// "parameterType" string attribute (a registered alias or a fully
// qualified type name) to a Go type, given as a zero value of that type
// (the builder takes its reflect.Type); callers register aliases
// for every Go type a mapping document names.
type TypeResolver interface {
	Resolve(alias string) (any, bool) // returns a zero value of the resolved type
}

// Variables is the configuration-variable scope consulted for `${name}`
// substitution inside attributes, merged with an include's local
// <property> children.
type Variables map[string]string

// Builder parses one or more mapping XML documents into cfg.
type Builder struct {
	cfg       *mapping.Configuration
	resolver  TypeResolver
	variables Variables

	sqlFragments map[string]string // namespace-qualified <sql id> -> raw inner XML, for <include>
}

func NewBuilder(cfg *mapping.Configuration, resolver TypeResolver, vars Variables) *Builder {
	return &Builder{cfg: cfg, resolver: resolver, variables: vars, sqlFragments: make(map[string]string)}
}

// mapperDoc mirrors the top-level <mapper> document structure.
type mapperDoc struct {
	XMLName    xml.Name     `xml:"mapper"`
	Namespace  string       `xml:"namespace,attr"`
	CacheRef   *cacheRefElem `xml:"cache-ref"`
	Cache      *cacheElem    `xml:"cache"`
	Sql        []sqlElem     `xml:"sql"`
	ResultMaps []resultMapElem `xml:"resultMap"`
	Selects    []statementElem `xml:"select"`
	Inserts    []statementElem `xml:"insert"`
	Updates    []statementElem `xml:"update"`
	Deletes    []statementElem `xml:"delete"`
}

type cacheRefElem struct {
	Namespace string `xml:"namespace,attr"`
}

type cacheElem struct {
	Eviction string `xml:"eviction,attr"`
	Size     int    `xml:"size,attr"`
}

type sqlElem struct {
	ID      string `xml:"id,attr"`
	Content string `xml:",innerxml"`
}

type resultMapElem struct {
	ID          string `xml:"id,attr"`
	Type        string `xml:"type,attr"`
	Extends     string `xml:"extends,attr"`
	AutoMapping string `xml:"autoMapping,attr"`

	Constructor *constructorElem `xml:"constructor"`
	IDs         []resultElem     `xml:"id"`
	Results     []resultElem     `xml:"result"`
	Assocs      []assocElem      `xml:"association"`
	Colls       []assocElem      `xml:"collection"`
	Disc        *discriminatorElem `xml:"discriminator"`
}

type constructorElem struct {
	Args []resultElem `xml:"arg"`
	IDArgs []resultElem `xml:"idArg"`
}

type resultElem struct {
	Property string `xml:"property,attr"`
	Column   string `xml:"column,attr"`
	JavaType string `xml:"javaType,attr"`
	JdbcType string `xml:"jdbcType,attr"`
}

type assocElem struct {
	Property     string `xml:"property,attr"`
	Column       string `xml:"column,attr"`
	JavaType     string `xml:"javaType,attr"`
	Select       string `xml:"select,attr"`
	ResultMap    string `xml:"resultMap,attr"`
	ColumnPrefix string `xml:"columnPrefix,attr"`
	ForeignColumn string `xml:"foreignColumn,attr"`
	FetchType    string `xml:"fetchType,attr"`
	Results      []resultElem `xml:"result"`
}

type discriminatorElem struct {
	Column   string      `xml:"column,attr"`
	JavaType string      `xml:"javaType,attr"`
	Cases    []caseElem  `xml:"case"`
}

type caseElem struct {
	Value     string `xml:"value,attr"`
	ResultMap string `xml:"resultMap,attr"`
}

type statementElem struct {
	ID               string `xml:"id,attr"`
	ParameterType    string `xml:"parameterType,attr"`
	ResultType       string `xml:"resultType,attr"`
	ResultMap        string `xml:"resultMap,attr"`
	FlushCache       string `xml:"flushCache,attr"`
	UseCache         string `xml:"useCache,attr"`
	UseGeneratedKeys string `xml:"useGeneratedKeys,attr"`
	KeyProperty      string `xml:"keyProperty,attr"`
	KeyColumn        string `xml:"keyColumn,attr"`
	DatabaseID       string `xml:"databaseId,attr"`
	FetchSize        string `xml:"fetchSize,attr"`
	Timeout          string `xml:"timeout,attr"`
	ResultSets       string `xml:"resultSets,attr"`
	SelectKey        *selectKeyElem `xml:"selectKey"`
	InnerXML         string `xml:",innerxml"`
}

type selectKeyElem struct {
	KeyProperty string `xml:"keyProperty,attr"`
	KeyColumn   string `xml:"keyColumn,attr"`
	Order       string `xml:"order,attr"`
	InnerXML    string `xml:",innerxml"`
}

// RegisterXML implements the register_xml public-contract operation:
// parse a mapping XML document from r and register its contents into the
// builder's Configuration.
func (b *Builder) RegisterXML(sourceID string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return merr.NewBuilderError(sourceID, "read", err)
	}

	var doc mapperDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return merr.NewBuilderError(sourceID, "parse", err)
	}
	if doc.Namespace == "" {
		return merr.NewBuilderError(sourceID, "namespace", fmt.Errorf("mapper element requires a namespace attribute"))
	}
	ns := doc.Namespace

	for _, s := range doc.Sql {
		if err := mapping.ValidateLocalID(s.ID); err != nil {
			return err
		}
		b.sqlFragments[mapping.Qualify(ns, s.ID)] = s.Content
	}

	if doc.CacheRef != nil {
		if _, ok := b.cfg.GetCache(doc.CacheRef.Namespace); ok {
			b.cfg.AddCacheRef(ns, doc.CacheRef.Namespace)
		} else {
			b.cfg.DeferCacheRef(ns, doc.CacheRef.Namespace)
		}
	} else if doc.Cache != nil {
		size := doc.Cache.Size
		if size <= 0 {
			size = 1024
		}
		base := cachedec.NewPerpetualCache(ns)
		built, _, err := cachedec.Build(base, cachedec.Options{Eviction: evictionFromAttr(doc.Cache.Eviction), Size: size})
		if err != nil {
			return merr.NewBuilderError(sourceID, "cache", err)
		}
		b.cfg.AddCache(ns, built)
	}

	for _, rmElem := range doc.ResultMaps {
		if err := b.registerResultMap(ns, rmElem); err != nil {
			return err
		}
	}

	for _, st := range doc.Selects {
		if err := b.registerStatement(ns, mapping.CommandSelect, st); err != nil {
			return err
		}
	}
	for _, st := range doc.Inserts {
		if err := b.registerStatement(ns, mapping.CommandInsert, st); err != nil {
			return err
		}
	}
	for _, st := range doc.Updates {
		if err := b.registerStatement(ns, mapping.CommandUpdate, st); err != nil {
			return err
		}
	}
	for _, st := range doc.Deletes {
		if err := b.registerStatement(ns, mapping.CommandDelete, st); err != nil {
			return err
		}
	}

	return nil
}

func (b *Builder) registerResultMap(ns string, e resultMapElem) error {
	if err := mapping.ValidateLocalID(e.ID); err != nil {
		return err
	}
	id := mapping.Qualify(ns, e.ID)

	var goType any
	if b.resolver != nil && e.Type != "" {
		goType, _ = b.resolver.Resolve(e.Type)
	}

	rm := &mapping.ResultMap{ID: id, Type: reflectTypeOrNil(goType)}
	if e.AutoMapping != "" {
		v := e.AutoMapping == "true"
		rm.AutoMapping = &v
	}

	if e.Constructor != nil {
		for _, a := range e.Constructor.IDArgs {
			rm.Mappings = append(rm.Mappings, mapping.ResultMapping{Column: a.Column, Flags: mapping.FlagConstructor | mapping.FlagID})
		}
		for _, a := range e.Constructor.Args {
			rm.Mappings = append(rm.Mappings, mapping.ResultMapping{Column: a.Column, Flags: mapping.FlagConstructor})
		}
	}
	for _, r := range e.IDs {
		rm.Mappings = append(rm.Mappings, mapping.ResultMapping{Property: r.Property, Column: r.Column, JdbcType: r.JdbcType, Flags: mapping.FlagID})
	}
	for _, r := range e.Results {
		rm.Mappings = append(rm.Mappings, mapping.ResultMapping{Property: r.Property, Column: r.Column, JdbcType: r.JdbcType})
	}
	for _, a := range e.Assocs {
		rm.Mappings = append(rm.Mappings, assocToMapping(ns, a))
	}
	for _, a := range e.Colls {
		rm.Mappings = append(rm.Mappings, assocToMapping(ns, a))
	}
	if e.Disc != nil {
		cases := make(map[string]string, len(e.Disc.Cases))
		for _, c := range e.Disc.Cases {
			cases[c.Value] = mapping.Qualify(ns, c.ResultMap)
		}
		rm.Discriminator = &mapping.Discriminator{Column: e.Disc.Column, Cases: cases}
	}

	rm.RebuildMappedColumns()

	if e.Extends == "" {
		b.cfg.AddResultMap(rm)
		return nil
	}

	parentID := mapping.Qualify(ns, e.Extends)
	b.cfg.AddResultMap(rm) // register unmerged first so same-pass references still find something
	if _, ok := b.cfg.GetResultMap(parentID); ok {
		return b.cfg.MergeResultMapExtends(rm, parentID)
	}
	b.cfg.DeferResultMapExtends(rm, parentID)
	return nil
}

func assocToMapping(ns string, a assocElem) mapping.ResultMapping {
	m := mapping.ResultMapping{
		Property:      a.Property,
		Column:        a.Column,
		ColumnPrefix:  a.ColumnPrefix,
		ForeignColumn: a.ForeignColumn,
		Lazy:          a.FetchType == "lazy",
	}
	if a.Select != "" {
		m.NestedSelectID = mapping.Qualify(ns, a.Select)
	}
	if a.ResultMap != "" {
		m.NestedResultMap = mapping.Qualify(ns, a.ResultMap)
	}
	return m
}

func (b *Builder) registerStatement(ns string, cmd mapping.CommandKind, e statementElem) error {
	if err := mapping.ValidateLocalID(e.ID); err != nil {
		return err
	}
	id := mapping.Qualify(ns, e.ID)

	body, err := b.expandIncludes(ns, e.InnerXML, nil)
	if err != nil {
		return merr.NewBuilderError(id, "include", err)
	}

	source, err := compileDynamicSql(body)
	if err != nil {
		return merr.NewBuilderError(id, "sql", err)
	}

	stmt := &mapping.MappedStatement{
		ID:         id,
		Command:    cmd,
		Statement:  mapping.StatementPrepared,
		SqlSource:  source,
		FlushCache: parseBoolAttr(e.FlushCache, cmd != mapping.CommandSelect),
		UseCache:   parseBoolAttr(e.UseCache, cmd == mapping.CommandSelect),
		FetchSize:  parseIntAttr(e.FetchSize, 0),
		DatabaseID: e.DatabaseID,
	}
	if e.ResultSets != "" {
		stmt.ResultSets = strings.Split(e.ResultSets, ",")
	}
	if e.UseGeneratedKeys == "true" {
		stmt.KeyGenerator = mapping.KeyGeneratorJdbc3
		stmt.KeyProperties = splitTrim(e.KeyProperty)
		stmt.KeyColumns = splitTrim(e.KeyColumn)
	}

	if e.ResultMap != "" {
		rmID := mapping.Qualify(ns, e.ResultMap)
		if rm, ok := b.cfg.GetResultMap(rmID); ok {
			stmt.ResultMaps = []*mapping.ResultMap{rm}
		} else {
			b.cfg.DeferStatement(id, func() error {
				rm, ok := b.cfg.GetResultMap(rmID)
				if !ok {
					return merr.ErrResultMapNotFound
				}
				stmt.ResultMaps = []*mapping.ResultMap{rm}
				return nil
			})
		}
	}

	if e.SelectKey != nil {
		skBody, err := b.expandIncludes(ns, e.SelectKey.InnerXML, nil)
		if err != nil {
			return merr.NewBuilderError(id, "selectKey", err)
		}
		skSource, err := compileDynamicSql(skBody)
		if err != nil {
			return merr.NewBuilderError(id, "selectKey", err)
		}
		before := e.SelectKey.Order == "BEFORE"
		sk := mapping.CompileSelectKey(b.cfg, id, skSource, splitTrim(e.SelectKey.KeyProperty), splitTrim(e.SelectKey.KeyColumn), before)
		stmt.SelectKey = sk
		stmt.KeyGenerator = mapping.KeyGeneratorSelectKey
	}

	b.cfg.AddStatement(stmt)
	return nil
}

// expandIncludes resolves <include refid="..."> elements recursively,
// substituting ${...} in the included fragment from the merged variable
// scope (configuration variables union local <property> children).
func (b *Builder) expandIncludes(ns, body string, localProps Variables) (string, error) {
	const includeOpen = "<include"
	var out strings.Builder
	rest := body
	for {
		idx := strings.Index(rest, includeOpen)
		if idx < 0 {
			out.WriteString(rest)
			break
		}
		out.WriteString(rest[:idx])
		end := strings.Index(rest[idx:], "/>")
		selfClosing := true
		closeTagIdx := strings.Index(rest[idx:], "</include>")
		tagEnd := strings.Index(rest[idx:], ">")
		if tagEnd < 0 {
			return "", fmt.Errorf("unterminated <include> element")
		}
		var openTag string
		var afterOpen int
		if closeTagIdx >= 0 && (end < 0 || closeTagIdx < end) {
			selfClosing = false
			openTag = rest[idx : idx+tagEnd+1]
			afterOpen = idx + tagEnd + 1
		} else {
			openTag = rest[idx : idx+end+2]
			afterOpen = idx + end + 2
		}

		refID := attrValue(openTag, "refid")
		mergedVars := make(Variables)
		for k, v := range b.variables {
			mergedVars[k] = v
		}
		for k, v := range localProps {
			mergedVars[k] = v
		}

		var innerProps string
		if !selfClosing {
			closeStart := strings.Index(rest[afterOpen:], "</include>")
			innerProps = rest[afterOpen : afterOpen+closeStart]
			rest = rest[afterOpen+closeStart+len("</include>"):]
			for _, kv := range parsePropertyChildren(innerProps) {
				mergedVars[kv[0]] = kv[1]
			}
		} else {
			rest = rest[afterOpen:]
		}

		refID = mapping.Qualify(ns, substituteVars(refID, mergedVars))
		fragment, ok := b.sqlFragments[refID]
		if !ok {
			return "", fmt.Errorf("include references unknown sql fragment %q", refID)
		}
		expanded, err := b.expandIncludes(ns, fragment, mergedVars)
		if err != nil {
			return "", err
		}
		out.WriteString(substituteVars(expanded, mergedVars))
	}
	return out.String(), nil
}

func parsePropertyChildren(s string) [][2]string {
	var out [][2]string
	rest := s
	for {
		idx := strings.Index(rest, "<property")
		if idx < 0 {
			break
		}
		tagEnd := strings.Index(rest[idx:], "/>")
		if tagEnd < 0 {
			break
		}
		tag := rest[idx : idx+tagEnd+2]
		out = append(out, [2]string{attrValue(tag, "name"), attrValue(tag, "value")})
		rest = rest[idx+tagEnd+2:]
	}
	return out
}

func attrValue(tag, name string) string {
	key := name + "=\""
	idx := strings.Index(tag, key)
	if idx < 0 {
		return ""
	}
	rest := tag[idx+len(key):]
	end := strings.Index(rest, "\"")
	if end < 0 {
		return ""
	}
	return rest[:end]
}

func substituteVars(text string, vars Variables) string {
	var out strings.Builder
	rest := text
	for {
		idx := strings.Index(rest, "${")
		if idx < 0 {
			out.WriteString(rest)
			break
		}
		end := strings.Index(rest[idx:], "}")
		if end < 0 {
			out.WriteString(rest)
			break
		}
		out.WriteString(rest[:idx])
		name := rest[idx+2 : idx+end]
		if v, ok := vars[name]; ok {
			out.WriteString(v)
		}
		rest = rest[idx+end+1:]
	}
	return out.String()
}

func splitTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseBoolAttr(s string, def bool) bool {
	if s == "" {
		return def
	}
	return s == "true"
}

func parseIntAttr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func reflectTypeOrNil(v any) reflect.Type {
	if v == nil {
		return nil
	}
	return reflect.TypeOf(v)
}

func evictionFromAttr(s string) cachedec.Eviction {
	switch strings.ToUpper(s) {
	case "FIFO":
		return cachedec.EvictionFIFO
	case "SOFT":
		return cachedec.EvictionSoft
	case "WEAK":
		return cachedec.EvictionWeak
	case "", "LRU":
		return cachedec.EvictionLRU
	default:
		return cachedec.EvictionPerpetual
	}
}

// compileDynamicSql builds a dynamicsql.SqlSource from a statement body
// containing #{...}/${...} and the <if>/<where>/<set>/<trim>/<choose>/
// <foreach>/<bind> SqlNode grammar. Dynamic-tag detection and node
// construction are delegated to dynamicxml.go in this package.
func compileDynamicSql(body string) (dynamicsql.SqlSource, error) {
	root, isDynamic, err := parseSqlNodeTree(body)
	if err != nil {
		return nil, err
	}
	if !isDynamic {
		return dynamicsql.NewRawSqlSource(textContent(root)), nil
	}
	return &dynamicsql.DynamicSqlSource{Root: root}, nil
}
