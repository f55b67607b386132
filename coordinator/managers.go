// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package coordinator

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/danielhkuo/cla-access/models"
)

// authoritativeSignature returns the first corporate signature, if any.
func authoritativeSignature(sigs []models.Signature) *models.Signature {
	for i := range sigs {
		if sigs[i].SignatureType == models.SignatureTypeCorporate {
			sig := sigs[i]
			return &sig
		}
	}
	return nil
}

// managersFromACL converts ACL entries into a manager list ordered by
// case-insensitive name. Entries with equal names keep their ACL order.
func managersFromACL(acl []models.ACLEntry) []models.Manager {
	// Collators are not safe for concurrent use.
	col := collate.New(language.Und, collate.IgnoreCase)
	managers := make([]models.Manager, 0, len(acl))
	for _, entry := range acl {
		managers = insertManager(col, managers, models.Manager{
			UserID: entry.UserID,
			Name:   entry.Username,
			Email:  entry.LFEmail,
		})
	}
	return managers
}

func insertManager(col *collate.Collator, managers []models.Manager, m models.Manager) []models.Manager {
	i := sort.Search(len(managers), func(i int) bool {
		return col.CompareString(managers[i].Name, m.Name) > 0
	})
	managers = append(managers, models.Manager{})
	copy(managers[i+1:], managers[i:])
	managers[i] = m
	return managers
}

func findManager(managers []models.Manager, userID string) (models.Manager, bool) {
	for _, m := range managers {
		if m.UserID == userID {
			return m, true
		}
	}
	return models.Manager{}, false
}

// candidateEmails merges the user's emails with the LF email, dropping exact
// duplicates and keeping first-seen order.
func candidateEmails(user *models.User) []string {
	emails := make([]string, 0, len(user.UserEmails)+1)
	seen := make(map[string]bool, len(user.UserEmails)+1)
	add := func(e string) {
		if e == "" || seen[e] {
			return
		}
		seen[e] = true
		emails = append(emails, e)
	}
	for _, e := range user.UserEmails {
		add(e)
	}
	add(user.LFEmail)
	return emails
}
