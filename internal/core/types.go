package core

import "volunteercore/pkg/domain"

type (
	EntityType      = domain.EntityType
	Status          = domain.Status
	Application     = domain.Application
	ApplicationView = domain.ApplicationView
	Requester       = domain.Requester
	Program         = domain.Program
	Administrator   = domain.Administrator
	Notification    = domain.Notification
	Notifier        = domain.Notifier
	PersistentStore = domain.PersistentStore
)

const (
	StatusPending   = domain.StatusPending
	StatusApproved  = domain.StatusApproved
	StatusDeclined  = domain.StatusDeclined
	StatusCancelled = domain.StatusCancelled
	StatusCompleted = domain.StatusCompleted
)

const (
	EntityApplication = domain.EntityApplication
	EntityRequester   = domain.EntityRequester
	EntityProgram     = domain.EntityProgram
)
