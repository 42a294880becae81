package repository

import (
	"mindbridge/config"
	accountRepo "mindbridge/database/repository/account"
	"mindbridge/database/repository/memory"
	schedulerRepo "mindbridge/database/repository/scheduler"
	timeslotRepo "mindbridge/database/repository/timeslot"
)

// Re-export the repository interfaces and constructors.
type TimeSlotRepository = timeslotRepo.TimeSlotRepository

var NewMongoTimeSlotRepo = timeslotRepo.NewMongoTimeSlotRepo

type AccountRepository = accountRepo.AccountRepository

var NewMongoAccountRepo = accountRepo.NewMongoAccountRepo

type SchedulerRepository = schedulerRepo.SchedulerRepository

type SchedulerTx = schedulerRepo.SchedulerTx

var NewMongoSchedulerRepo = schedulerRepo.NewMongoSchedulerRepo

// Stores bundles the repositories a process needs.
type Stores struct {
	TimeSlots TimeSlotRepository
	Accounts  AccountRepository
	Scheduler SchedulerRepository
}

// NewStores builds the repositories for the configured STORE_DRIVER. The mongo
// driver expects database.InitDB to have run.
func NewStores() Stores {
	if config.AppConfig.StoreDriver == "memory" {
		return NewMemoryStores(memory.NewStore())
	}
	return Stores{
		TimeSlots: NewMongoTimeSlotRepo(),
		Accounts:  NewMongoAccountRepo(),
		Scheduler: NewMongoSchedulerRepo(),
	}
}

// NewMemoryStores exposes one in-memory store through every repository interface.
func NewMemoryStores(store *memory.Store) Stores {
	return Stores{TimeSlots: store, Accounts: store, Scheduler: store}
}
