package resource

import (
	"time"

	"github.com/unkn0wn-root/mongocache/provider"
)

// Typed accessors over the option table. Setters validate, store and
// invalidate the memoized connection; getters return the raw stored value
// (the zero value when never set) or NotFoundError for an unknown id.

func (m *Manager) SetServers(id string, servers any) error {
	return m.SetOption(id, OptServers, servers)
}

func (m *Manager) Servers(id string) ([]provider.Server, error) {
	v, err := m.Option(id, OptServers)
	if err != nil {
		return nil, err
	}
	return v.([]provider.Server), nil
}

func (m *Manager) SetDatabase(id, name string) error  { return m.SetOption(id, OptDatabase, name) }
func (m *Manager) Database(id string) (string, error) { return m.stringOption(id, OptDatabase) }

func (m *Manager) SetCollection(id, name string) error  { return m.SetOption(id, OptCollection, name) }
func (m *Manager) Collection(id string) (string, error) { return m.stringOption(id, OptCollection) }

func (m *Manager) SetReplicaSet(id, name string) error  { return m.SetOption(id, OptReplicaSet, name) }
func (m *Manager) ReplicaSet(id string) (string, error) { return m.stringOption(id, OptReplicaSet) }

func (m *Manager) SetUsername(id, user string) error  { return m.SetOption(id, OptUsername, user) }
func (m *Manager) Username(id string) (string, error) { return m.stringOption(id, OptUsername) }

func (m *Manager) SetPassword(id, pass string) error  { return m.SetOption(id, OptPassword, pass) }
func (m *Manager) Password(id string) (string, error) { return m.stringOption(id, OptPassword) }

func (m *Manager) SetReadPreference(id, mode string) error {
	return m.SetOption(id, OptReadPreference, mode)
}

func (m *Manager) ReadPreference(id string) (string, error) {
	return m.stringOption(id, OptReadPreference)
}

func (m *Manager) SetReadPreferenceTags(id string, tags []string) error {
	return m.SetOption(id, OptReadPreferenceTags, tags)
}

func (m *Manager) ReadPreferenceTags(id string) ([]string, error) {
	v, err := m.Option(id, OptReadPreferenceTags)
	if err != nil {
		return nil, err
	}
	tags, _ := v.([]string)
	return append([]string(nil), tags...), nil
}

func (m *Manager) SetConnectTimeout(id string, d time.Duration) error {
	return m.SetOption(id, OptConnectTimeout, d.Milliseconds())
}

func (m *Manager) ConnectTimeout(id string) (time.Duration, error) {
	return m.durationOption(id, OptConnectTimeout)
}

func (m *Manager) SetSocketTimeout(id string, d time.Duration) error {
	return m.SetOption(id, OptSocketTimeout, d.Milliseconds())
}

func (m *Manager) SocketTimeout(id string) (time.Duration, error) {
	return m.durationOption(id, OptSocketTimeout)
}

func (m *Manager) SetWriteTimeout(id string, d time.Duration) error {
	return m.SetOption(id, OptWriteTimeout, d.Milliseconds())
}

func (m *Manager) WriteTimeout(id string) (time.Duration, error) {
	return m.durationOption(id, OptWriteTimeout)
}

func (m *Manager) SetTLS(id string, on bool) error { return m.SetOption(id, OptTLS, on) }
func (m *Manager) TLS(id string) (bool, error)     { return m.boolOption(id, OptTLS) }

func (m *Manager) SetJournal(id string, on bool) error { return m.SetOption(id, OptJournal, on) }
func (m *Manager) Journal(id string) (bool, error)     { return m.boolOption(id, OptJournal) }

func (m *Manager) SetFSync(id string, on bool) error { return m.SetOption(id, OptFSync, on) }
func (m *Manager) FSync(id string) (bool, error)     { return m.boolOption(id, OptFSync) }

func (m *Manager) SetConnect(id string, on bool) error { return m.SetOption(id, OptConnect, on) }
func (m *Manager) Connect(id string) (bool, error)     { return m.boolOption(id, OptConnect) }

// SetWriteConcern accepts an integer >= 1, "majority", a list of tag-set
// names or a provider.WriteConcern.
func (m *Manager) SetWriteConcern(id string, w any) error {
	return m.SetOption(id, OptWriteConcern, w)
}

func (m *Manager) WriteConcern(id string) (provider.WriteConcern, error) {
	v, err := m.Option(id, OptWriteConcern)
	if err != nil {
		return provider.WriteConcern{}, err
	}
	wc, _ := v.(provider.WriteConcern)
	return wc, nil
}

func (m *Manager) stringOption(id, name string) (string, error) {
	v, err := m.Option(id, name)
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

func (m *Manager) boolOption(id, name string) (bool, error) {
	v, err := m.Option(id, name)
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

func (m *Manager) durationOption(id, name string) (time.Duration, error) {
	v, err := m.Option(id, name)
	if err != nil {
		return 0, err
	}
	n, _ := v.(int)
	return time.Duration(n) * time.Millisecond, nil
}
