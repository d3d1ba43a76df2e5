// Package storage keeps per-guild bot state on top of the JSON datastore:
// guild settings, a short command history and the fingerprints of the last
// registered command payloads.
package storage

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"discord-core-bot/datastore"
)

const commandHistoryLimit = 20

// metaPrefix marks keys that do not belong to a guild.
const metaPrefix = "meta:"

const fingerprintKey = metaPrefix + "command_fingerprints"

// GuildSettings is the per-guild configuration. The zero value is the
// default for guilds that never stored anything.
type GuildSettings struct {
	Prefix string `json:"prefix,omitempty"`
}

type CommandHistoryRecord struct {
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Command   string    `json:"command"`
	Datetime  time.Time `json:"datetime"`
}

// Record is what is stored under a guild id.
type Record struct {
	Settings            GuildSettings          `json:"settings"`
	CommandsHistoryList []CommandHistoryRecord `json:"cmd_history"`
}

// Storage is safe for concurrent use. Record updates are serialized so that
// concurrent lane workers never lose each other's writes.
type Storage struct {
	ds *datastore.DataStore
	mu sync.Mutex
}

// New opens the store at filePath. Settings changes are written through
// immediately; history is flushed by the datastore's auto-save.
func New(filePath string) (*Storage, error) {
	ds, err := datastore.New(filePath)
	if err != nil {
		return nil, err
	}
	s := &Storage{ds: ds}
	log.Info().
		Str("path", ds.Stats().FilePath).
		Int("guilds", len(s.GuildIDs())).
		Msg("settings loaded")
	return s, nil
}

// NewWithStore wraps an already opened datastore.
func NewWithStore(ds *datastore.DataStore) *Storage {
	return &Storage{ds: ds}
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

func (s *Storage) getOrCreateGuildRecord(guildID string) (*Record, error) {
	if guildID == "" {
		return nil, errors.New("empty guild id")
	}
	var record Record
	if _, err := s.ds.Get(guildID, &record); err != nil {
		return nil, fmt.Errorf("error reading guild %s: %w", guildID, err)
	}
	if len(record.CommandsHistoryList) > commandHistoryLimit {
		record.CommandsHistoryList = record.CommandsHistoryList[len(record.CommandsHistoryList)-commandHistoryLimit:]
	}
	return &record, nil
}

// GuildSettings returns the stored settings, or the defaults when the guild
// has none.
func (s *Storage) GuildSettings(guildID string) (GuildSettings, error) {
	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return GuildSettings{}, err
	}
	return record.Settings, nil
}

// SaveGuildSettings replaces the guild's settings and writes them to disk.
func (s *Storage) SaveGuildSettings(guildID string, settings GuildSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}
	record.Settings = settings
	if err := s.ds.Put(guildID, record); err != nil {
		return err
	}
	return s.ds.SaveToFile()
}

// GuildPrefix returns the guild's legacy command prefix, if one is set.
func (s *Storage) GuildPrefix(guildID string) (string, bool) {
	settings, err := s.GuildSettings(guildID)
	if err != nil {
		log.Warn().Err(err).Str("guild", guildID).Msg("failed to read guild prefix")
		return "", false
	}
	return settings.Prefix, settings.Prefix != ""
}

// RecordCommand appends to the guild's command history, keeping the newest
// entries only.
func (s *Storage) RecordCommand(guildID, channelID, userID, userName, path string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}
	record.CommandsHistoryList = append(record.CommandsHistoryList, CommandHistoryRecord{
		ChannelID: channelID,
		UserID:    userID,
		Username:  userName,
		Command:   path,
		Datetime:  at,
	})
	if n := len(record.CommandsHistoryList); n > commandHistoryLimit {
		record.CommandsHistoryList = record.CommandsHistoryList[n-commandHistoryLimit:]
	}
	return s.ds.Put(guildID, record)
}

// FetchCommandHistory returns the guild's recent commands, oldest first.
func (s *Storage) FetchCommandHistory(guildID string) ([]CommandHistoryRecord, error) {
	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.CommandsHistoryList, nil
}

// GuildIDs lists the guilds that have stored state.
func (s *Storage) GuildIDs() []string {
	var ids []string
	for _, k := range s.ds.Keys() {
		if !strings.HasPrefix(k, metaPrefix) {
			ids = append(ids, k)
		}
	}
	return ids
}

// CommandFingerprint returns the fingerprint of the payload last registered
// for scope ("global" or a guild id).
func (s *Storage) CommandFingerprint(scope string) (uint64, bool) {
	var fps map[string]uint64
	if _, err := s.ds.Get(fingerprintKey, &fps); err != nil {
		log.Warn().Err(err).Msg("failed to read command fingerprints")
		return 0, false
	}
	fp, ok := fps[scope]
	return fp, ok
}

// SetCommandFingerprint stores the fingerprint for scope and writes it to
// disk.
func (s *Storage) SetCommandFingerprint(scope string, fp uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fps := map[string]uint64{}
	if _, err := s.ds.Get(fingerprintKey, &fps); err != nil {
		return err
	}
	if fps == nil {
		fps = map[string]uint64{}
	}
	fps[scope] = fp
	if err := s.ds.Put(fingerprintKey, fps); err != nil {
		return err
	}
	return s.ds.SaveToFile()
}
