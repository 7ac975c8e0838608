// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package netflow

import (
	"strconv"
	"sync"
)

// templateField is one (type, length) pair of a template.
type templateField struct {
	Type   uint16
	Length uint16
}

// template is an exporter-announced description of the field layout
// of subsequent data records.
type template struct {
	Fields []templateField
	// RecordLength is the sum of the field lengths.
	RecordLength uint32
}

type templateKey struct {
	obsDomainID uint32
	templateID  uint16
}

// templateSystem is the per-exporter template store. Reads vastly
// outnumber writes as templates are only announced periodically.
type templateSystem struct {
	nd  *Decoder
	key string

	lock      sync.RWMutex
	templates map[templateKey]*template
}

func newTemplateSystem(nd *Decoder, key string) *templateSystem {
	return &templateSystem{
		nd:        nd,
		key:       key,
		templates: map[templateKey]*template{},
	}
}

// add stores a template. An existing template for the same
// (observation domain, template ID) pair is overwritten as exporters
// may redefine templates.
func (s *templateSystem) add(version uint16, obsDomainID uint32, templateID uint16, fields []templateField) {
	var recordLength uint32
	for _, field := range fields {
		recordLength += uint32(field.Length)
	}
	s.lock.Lock()
	s.templates[templateKey{obsDomainID, templateID}] = &template{
		Fields:       fields,
		RecordLength: recordLength,
	}
	s.lock.Unlock()
	s.nd.metrics.templatesStats.WithLabelValues(
		s.key,
		strconv.Itoa(int(version)),
		strconv.Itoa(int(obsDomainID)),
		strconv.Itoa(int(templateID)),
		"template",
	).Inc()
}

// get returns the template for a data set, or nil when the template
// has not been seen yet. A miss is a normal condition: exporters may
// send data before templates.
func (s *templateSystem) get(obsDomainID uint32, templateID uint16) *template {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.templates[templateKey{obsDomainID, templateID}]
}
