package bridgeapp

import (
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/dbehnke/bridge-harness/pkg/bridgesdk"
	"github.com/dbehnke/bridge-harness/pkg/logger"
)

// activityGroupsKey is the app config clientData key holding activity groups
const activityGroupsKey = "activityGroups"

// ActivityGroup groups activities that share a schedule plan
type ActivityGroup struct {
	Identifier             string            `json:"identifier"`
	Title                  string            `json:"title,omitempty"`
	JourneyTitle           string            `json:"journeyTitle,omitempty"`
	ActivityIdentifiers    []string          `json:"activityIdentifiers,omitempty"`
	NotificationIdentifier string            `json:"notificationIdentifier,omitempty"`
	SchedulePlanGuid       string            `json:"schedulePlanGuid,omitempty"`
	ActivityGuidMap        map[string]string `json:"activityGuidMap,omitempty"`
}

// Configuration holds the app's view of the backend configuration
type Configuration struct {
	mu        sync.RWMutex
	appConfig *bridgesdk.AppConfig
	groups    map[string]ActivityGroup
	order     []string
	logger    *logger.Logger
}

// NewConfiguration creates an empty configuration
func NewConfiguration(log *logger.Logger) *Configuration {
	return &Configuration{
		groups: make(map[string]ActivityGroup),
		logger: log.WithComponent("bridgeapp.configuration"),
	}
}

// SetupBridge resolves the app config through the SDK accessors and registers
// the activity groups it declares. A missing app config is not an error.
func (c *Configuration) SetupBridge(sdk *bridgesdk.SDK) error {
	appConfig := sdk.AppConfig()
	if appConfig == nil {
		c.logger.Warn("No app config available, skipping activity group setup")
		return nil
	}

	c.mu.Lock()
	c.appConfig = appConfig
	c.mu.Unlock()

	raw, ok := appConfig.ClientData[activityGroupsKey]
	if !ok {
		return nil
	}

	var groups []ActivityGroup
	if err := bridgesdk.Decode(raw, &groups); err != nil {
		return fmt.Errorf("decode %s: %w", activityGroupsKey, err)
	}
	for _, group := range groups {
		c.AddMapping(group)
	}

	c.logger.Info("Bridge configured",
		logger.String("app_config", appConfig.Label),
		logger.Int("activity_groups", len(groups)))
	return nil
}

// AppConfig returns the app config captured by SetupBridge
func (c *Configuration) AppConfig() *bridgesdk.AppConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.appConfig
}

// AddMapping registers a group, replacing any group with the same identifier
func (c *Configuration) AddMapping(group ActivityGroup) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.groups[group.Identifier]; !exists {
		c.order = append(c.order, group.Identifier)
	}
	c.groups[group.Identifier] = group
}

// ActivityGroup looks up a group by identifier
func (c *Configuration) ActivityGroup(identifier string) (ActivityGroup, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	group, ok := c.groups[identifier]
	return group, ok
}

// ActivityGroups returns the registered groups in registration order
func (c *Configuration) ActivityGroups() []ActivityGroup {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lo.Map(c.order, func(id string, _ int) ActivityGroup {
		return c.groups[id]
	})
}

// ActivityGroupFor returns the first group listing the activity identifier
func (c *Configuration) ActivityGroupFor(activityIdentifier string) (ActivityGroup, bool) {
	return lo.Find(c.ActivityGroups(), func(g ActivityGroup) bool {
		return lo.Contains(g.ActivityIdentifiers, activityIdentifier)
	})
}
