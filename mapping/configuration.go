package mapping

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/wolfleong/gobatis/cachedec"
	"github.com/wolfleong/gobatis/merr"
)

// Configuration is the process-wide root: it owns every registered
// MappedStatement, ResultMap, ParameterMap, and namespace Cache, plus the
// deferred-resolution worklists that let mapping sources reference ids
// declared by sources parsed later. It is populated single-threadedly (or
// under caller-supplied synchronization) during bootstrap and treated as
// read-only by the execution core afterward.
type Configuration struct {
	mu sync.RWMutex

	statements   map[string]*MappedStatement
	resultMaps   map[string]*ResultMap
	parameterMaps map[string]*ParameterMap
	caches       map[string]cachedec.Cache

	cacheRefs map[string]string // namespace -> referenced namespace

	AutoMappingDefault bool // default AutoMapping for ResultMaps that don't override it

	worklists worklists
}

func NewConfiguration() *Configuration {
	return &Configuration{
		statements:          make(map[string]*MappedStatement),
		resultMaps:          make(map[string]*ResultMap),
		parameterMaps:       make(map[string]*ParameterMap),
		caches:              make(map[string]cachedec.Cache),
		cacheRefs:           make(map[string]string),
		AutoMappingDefault:  true,
		worklists:           newWorklists(),
	}
}

// Qualify applies the namespacing rule: an id with no dot is qualified
// by prepending "<namespace>.", an id already containing a dot is
// assumed already qualified and returned unchanged.
func Qualify(namespace, id string) string {
	if strings.Contains(id, ".") {
		return id
	}
	return namespace + "." + id
}

// ValidateLocalID rejects a dot in a locally-declared (unqualified) id.
func ValidateLocalID(id string) error {
	if strings.Contains(id, ".") {
		return merr.NewBuilderError(id, "", fmt.Errorf("locally-declared id must not contain a dot"))
	}
	return nil
}

func (c *Configuration) AddStatement(ms *MappedStatement) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statements[ms.ID] = ms
}

func (c *Configuration) GetMappedStatement(qualifiedID string) (*MappedStatement, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ms, ok := c.statements[qualifiedID]
	return ms, ok
}

func (c *Configuration) HasStatement(qualifiedID string) bool {
	_, ok := c.GetMappedStatement(qualifiedID)
	return ok
}

func (c *Configuration) AddResultMap(rm *ResultMap) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resultMaps[rm.ID] = rm
}

func (c *Configuration) GetResultMap(id string) (*ResultMap, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rm, ok := c.resultMaps[id]
	return rm, ok
}

func (c *Configuration) AddParameterMap(pm *ParameterMap) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parameterMaps[pm.ID] = pm
}

func (c *Configuration) GetParameterMap(id string) (*ParameterMap, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pm, ok := c.parameterMaps[id]
	return pm, ok
}

// AddCache registers namespace's own Cache instance.
func (c *Configuration) AddCache(namespace string, cache cachedec.Cache) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.caches[namespace] = cache
}

// AddCacheRef records that namespace shares refNamespace's Cache; resolved
// lazily (possibly via the worklist) since refNamespace may not have
// registered its cache yet.
func (c *Configuration) AddCacheRef(namespace, refNamespace string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheRefs[namespace] = refNamespace
}

func (c *Configuration) GetCache(namespace string) (cachedec.Cache, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if ref, isRef := c.cacheRefs[namespace]; isRef {
		cache, ok := c.caches[ref]
		return cache, ok
	}
	cache, ok := c.caches[namespace]
	return cache, ok
}

// MergeResultMapExtends resolves a child result map's "extends" against
// its already-registered parent and stores the merged map under the
// child's own id, overwriting the unmerged registration.
func (c *Configuration) MergeResultMapExtends(child *ResultMap, parentID string) error {
	parent, ok := c.GetResultMap(parentID)
	if !ok {
		return merr.NewIncompleteElementError("result-map", child.ID, fmt.Errorf("extends unresolved parent %q", parentID))
	}
	c.AddResultMap(mergeResultMaps(child, parent))
	return nil
}

// ResolveDiscriminatorChain follows a discriminator chain for the given
// column value starting at start, guarding against cycles with a
// visited-id set.
func ResolveDiscriminatorChain(cfg *Configuration, start *ResultMap, columnValue string) (*ResultMap, error) {
	visited := make(map[string]struct{})
	current := start
	for current.Discriminator != nil {
		if _, seen := visited[current.ID]; seen {
			return current, merr.ErrDiscriminatorCycle
		}
		visited[current.ID] = struct{}{}
		nextID, ok := current.Discriminator.Cases[columnValue]
		if !ok {
			break
		}
		next, ok := cfg.GetResultMap(nextID)
		if !ok {
			return current, merr.NewBuilderError(current.ID, columnValue, fmt.Errorf("discriminator case references unknown result map %q", nextID))
		}
		current = next
	}
	return current, nil
}

// typeOf is a small helper so builder code can construct reflect.Types
// from a zero value without importing reflect directly at every call site.
func typeOf(v any) reflect.Type { return reflect.TypeOf(v) }
