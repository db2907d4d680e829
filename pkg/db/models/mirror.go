package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harrypeter07/billsync/pkg/enums"
)

// Mirrored entities share identity and last-write metadata so the local
// store can apply last-writer-wins upserts without knowing the row type.

func (p Product) EntityID() uuid.UUID    { return p.ID }
func (p Product) LastUpdated() time.Time { return p.UpdatedAt }
func (p Product) Type() enums.EntityType { return enums.EntityProduct }

func (c Customer) EntityID() uuid.UUID    { return c.ID }
func (c Customer) LastUpdated() time.Time { return c.UpdatedAt }
func (c Customer) Type() enums.EntityType { return enums.EntityCustomer }

func (i Invoice) EntityID() uuid.UUID    { return i.ID }
func (i Invoice) LastUpdated() time.Time { return i.UpdatedAt }
func (i Invoice) Type() enums.EntityType { return enums.EntityInvoice }
