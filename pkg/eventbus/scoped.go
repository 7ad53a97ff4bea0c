package eventbus

import "fmt"

// ScopedTopic appends a scope key to a base topic: "stage.standings.updated.v1"
// scoped to "qualifier-a" becomes "stage.standings.updated.v1.qualifier-a".
// Viewers of one stage subscribe to the scoped subject, dashboards to "<base>.*".
func ScopedTopic(baseTopic, scope string) string {
	return fmt.Sprintf("%s.%s", baseTopic, scope)
}
