package models

import (
	"context"
	"testing"

	"github.com/Daskott/phonebook/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	auth.BcryptCost = bcrypt.MinCost
}

func newTestStore(t *testing.T) *Store {
	store, err := InitializeTestDb(t.TempDir())
	require.Nil(t, err, "Should open test db")
	t.Cleanup(func() { store.Close() })

	return store
}

func TestPeopleAreListedOnlyForTheirOwner(t *testing.T) {
	store := newTestStore(t)

	alice := &Person{UserEmail: "alice@example.com", FirstName: "Tony", LastName: "Stark"}
	bob := &Person{UserEmail: "bob@example.com", FirstName: "Peter", LastName: "Parker"}
	alice2 := &Person{UserEmail: "alice@example.com", FirstName: "Pepper", LastName: "Potts"}

	for _, person := range []*Person{alice, bob, alice2} {
		require.Nil(t, store.CreatePerson(person))
	}

	people, err := store.PeopleFor("alice@example.com")
	require.Nil(t, err)
	require.Len(t, people, 2)
	assert.Equal(t, "Tony Stark", people[0].FullName(), "Should keep insertion order")
	assert.Equal(t, "Pepper Potts", people[1].FullName())
	for _, person := range people {
		assert.Equal(t, "alice@example.com", person.UserEmail)
	}

	people, err = store.PeopleFor("nobody@example.com")
	assert.Nil(t, err)
	assert.Empty(t, people)
}

func TestIsOwnedBy(t *testing.T) {
	person := &Person{UserEmail: "alice@example.com"}

	assert.True(t, person.IsOwnedBy("alice@example.com"))
	assert.True(t, person.IsOwnedBy("Alice@Example.com"))
	assert.False(t, person.IsOwnedBy("bob@example.com"))
	assert.False(t, person.IsOwnedBy(""))

	var missing *Person
	assert.False(t, missing.IsOwnedBy("alice@example.com"))
}

func TestUpdatePersonNameKeepsIDAndOwner(t *testing.T) {
	store := newTestStore(t)

	person := &Person{UserEmail: "alice@example.com", FirstName: "Alice", LastName: "Smith"}
	require.Nil(t, store.CreatePerson(person))

	require.Nil(t, store.UpdatePersonName(person, "Alicia", "Smith"))

	updated, err := store.FindPerson(person.ID)
	require.Nil(t, err)
	assert.Equal(t, "Alicia Smith", updated.FullName())
	assert.Equal(t, person.ID, updated.ID)
	assert.Equal(t, "alice@example.com", updated.UserEmail)
}

func TestDeletePersonCascadesToPhoneNumbers(t *testing.T) {
	store := newTestStore(t)

	person := &Person{UserEmail: "alice@example.com", FirstName: "Alice"}
	other := &Person{UserEmail: "alice@example.com", FirstName: "Bruce"}
	require.Nil(t, store.CreatePerson(person))
	require.Nil(t, store.CreatePerson(other))

	require.Nil(t, store.AddPhoneNumber(&PhoneNumber{Number: "555-1234", Name: "mobile", PersonID: person.ID}))
	require.Nil(t, store.AddPhoneNumber(&PhoneNumber{Number: "555-0000", Name: "work", PersonID: person.ID}))
	require.Nil(t, store.AddPhoneNumber(&PhoneNumber{Number: "555-9999", Name: "home", PersonID: other.ID}))

	require.Nil(t, store.DeletePerson(person.ID))

	_, err := store.FindPerson(person.ID)
	assert.True(t, IsNotFound(err), "Person should be gone")

	phoneNumbers, err := store.PhoneNumbersFor(person.ID)
	assert.Nil(t, err)
	assert.Empty(t, phoneNumbers, "Phone numbers of the deleted person should be gone")

	phoneNumbers, err = store.PhoneNumbersFor(other.ID)
	assert.Nil(t, err)
	assert.Len(t, phoneNumbers, 1, "Other people's phone numbers should stay")

	assert.Nil(t, store.DeletePerson(person.ID), "Deleting twice should not fail")
}

func TestStoreTransactionRollback(t *testing.T) {
	store := newTestStore(t)

	tx, err := store.Begin(context.Background())
	require.Nil(t, err)
	require.Nil(t, tx.CreatePerson(&Person{UserEmail: "alice@example.com", FirstName: "Alice"}))
	require.Nil(t, tx.Rollback())

	people, err := store.PeopleFor("alice@example.com")
	assert.Nil(t, err)
	assert.Empty(t, people, "Rolled back person should not be stored")

	tx, err = store.Begin(context.Background())
	require.Nil(t, err)
	require.Nil(t, tx.CreatePerson(&Person{UserEmail: "alice@example.com", FirstName: "Alice"}))
	require.Nil(t, tx.Commit())

	people, err = store.PeopleFor("alice@example.com")
	assert.Nil(t, err)
	assert.Len(t, people, 1)
}

func TestStoreFromContext(t *testing.T) {
	_, ok := StoreFromContext(context.Background())
	assert.False(t, ok)

	store := &Store{}
	found, ok := StoreFromContext(ContextWithStore(context.Background(), store))
	assert.True(t, ok)
	assert.Same(t, store, found)
}

func TestDeletePersonJoinsOuterTransaction(t *testing.T) {
	store := newTestStore(t)

	person := &Person{UserEmail: "alice@example.com", FirstName: "Alice"}
	require.Nil(t, store.CreatePerson(person))
	require.Nil(t, store.AddPhoneNumber(&PhoneNumber{Number: "555-1234", Name: "mobile", PersonID: person.ID}))

	tx, err := store.Begin(context.Background())
	require.Nil(t, err)
	require.Nil(t, tx.DeletePerson(person.ID))
	require.Nil(t, tx.Rollback())

	_, err = store.FindPerson(person.ID)
	assert.Nil(t, err, "Should undo the delete with the outer transaction")

	phoneNumbers, err := store.PhoneNumbersFor(person.ID)
	require.Nil(t, err)
	assert.Len(t, phoneNumbers, 1)
}
