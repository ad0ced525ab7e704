package repository_test

import (
	"testing"

	"nestodo/app/repository"
	"nestodo/app/repository/repositorytest"
)

func TestMemoryRepository(t *testing.T) {
	repositorytest.Run(t, func(t *testing.T) repository.Repository {
		return repository.NewMemoryRepository()
	})
}
