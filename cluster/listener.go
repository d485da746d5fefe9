package cluster

// Listener receives cluster events, callbacks run on the goroutine that caused them
type Listener interface {
	ClusterAdded(cluster *Cluster)
	ClusterChanged(cluster *Cluster)
	ClusterRemoved(cluster *Cluster)
	// ClustersLoaded fires after each auto refresh cycle
	ClustersLoaded()
}

// ListenerFuncs is a Listener built from optional functions
type ListenerFuncs struct {
	OnAdded   func(cluster *Cluster)
	OnChanged func(cluster *Cluster)
	OnRemoved func(cluster *Cluster)
	OnLoaded  func()
}

// ClusterAdded implements Listener
func (l ListenerFuncs) ClusterAdded(cluster *Cluster) {
	if l.OnAdded != nil {
		l.OnAdded(cluster)
	}
}

// ClusterChanged implements Listener
func (l ListenerFuncs) ClusterChanged(cluster *Cluster) {
	if l.OnChanged != nil {
		l.OnChanged(cluster)
	}
}

// ClusterRemoved implements Listener
func (l ListenerFuncs) ClusterRemoved(cluster *Cluster) {
	if l.OnRemoved != nil {
		l.OnRemoved(cluster)
	}
}

// ClustersLoaded implements Listener
func (l ListenerFuncs) ClustersLoaded() {
	if l.OnLoaded != nil {
		l.OnLoaded()
	}
}
