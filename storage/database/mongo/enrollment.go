package mongorepos

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/student"
)

type enrollmentStore struct {
	db *mongo.Database
}

var _ enrollment.Store = (*enrollmentStore)(nil) // interface compliance check

// NewEnrollmentStore needs a replica set: units of work are multi-document transactions.
func NewEnrollmentStore(db *mongo.Database) *enrollmentStore {
	return &enrollmentStore{db: db}
}

func (store *enrollmentStore) Begin(ctx context.Context) (enrollment.UnitOfWork, error) {
	sess, err := store.db.Client().StartSession()
	if err != nil {
		return nil, errors.Wrap(err, "starting session")
	}
	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err = sess.StartTransaction(txnOpts); err != nil {
		sess.EndSession(ctx)
		return nil, errors.Wrap(err, "starting transaction")
	}
	return &unitOfWork{db: store.db, sess: sess, sctx: mongo.NewSessionContext(ctx, sess)}, nil
}

func (store *enrollmentStore) GetEnrollment(ctx context.Context, id string) (enrollment.Enrollment, error) {
	return loadEnrollment(ctx, store.db, id)
}

func loadEnrollment(ctx context.Context, db *mongo.Database, id string) (enrollment.Enrollment, error) {
	var doc enrollmentDoc
	if err := db.Collection(enrollmentsColl).FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return enrollment.Enrollment{}, trapNoDocErr(err, enrollment.ErrNotFound)
	}
	e := doc.toEnrollment()

	var course courseDoc
	if err := db.Collection(coursesColl).FindOne(ctx, bson.M{"_id": doc.CourseID}).Decode(&course); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "loading course")
	}
	e.Course = enrollment.Course(course)

	var std studentDoc
	if err := db.Collection(studentsColl).FindOne(ctx, bson.M{"_id": doc.StudentID}).Decode(&std); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "loading student")
	}
	e.Student = std.toStudent()

	var err error
	if e.PartialPaymentDetails, err = loadPayment(ctx, db, doc.PartialPaymentID); err != nil {
		return enrollment.Enrollment{}, err
	}
	if e.FullPaymentDetails, err = loadPayment(ctx, db, doc.FullPaymentID); err != nil {
		return enrollment.Enrollment{}, err
	}
	if e.PartialPaymentDetails == nil {
		e.PartialPaymentID = ""
	}
	if e.FullPaymentDetails == nil {
		e.FullPaymentID = ""
	}
	return e, nil
}

// loadPayment returns nil for an empty or dangling reference.
func loadPayment(ctx context.Context, db *mongo.Database, id string) (*enrollment.Payment, error) {
	if id == "" {
		return nil, nil
	}
	var doc paymentDoc
	err := db.Collection(paymentsColl).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "loading payment")
	}
	return doc.toPayment(), nil
}

type unitOfWork struct {
	db   *mongo.Database
	sess mongo.Session
	sctx mongo.SessionContext
	done bool
}

// FindEnrollment with forUpdate writes a lock marker first: a concurrent
// transaction touching the same enrollment then aborts with a write conflict.
func (uow *unitOfWork) FindEnrollment(_ context.Context, id string, forUpdate bool) (enrollment.Enrollment, error) {
	if forUpdate {
		res, err := uow.db.Collection(enrollmentsColl).UpdateOne(uow.sctx,
			bson.M{"_id": id}, bson.M{"$inc": bson.M{"lock_version": 1}})
		if err != nil {
			return enrollment.Enrollment{}, trapWriteConflict(err)
		}
		if res.MatchedCount == 0 {
			return enrollment.Enrollment{}, enrollment.ErrNotFound
		}
	}
	return loadEnrollment(uow.sctx, uow.db, id)
}

func (uow *unitOfWork) DeletePayment(_ context.Context, id string) error {
	_, err := uow.db.Collection(paymentsColl).DeleteOne(uow.sctx, bson.M{"_id": id})
	return errors.Wrap(trapWriteConflict(err), "deleting payment")
}

func (uow *unitOfWork) SaveEnrollment(_ context.Context, e enrollment.Enrollment) error {
	set := bson.M{
		"payment_status":   string(e.PaymentStatus),
		"amount_paid":      e.AmountPaid,
		"amount_remaining": e.AmountRemaining,
		"updated_at":       e.UpdatedAt.UTC(),
	}
	unset := bson.M{}
	if e.PartialPaymentID != "" {
		set["partial_payment_id"] = e.PartialPaymentID
	} else {
		unset["partial_payment_id"] = ""
	}
	if e.FullPaymentID != "" {
		set["full_payment_id"] = e.FullPaymentID
	} else {
		unset["full_payment_id"] = ""
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := uow.db.Collection(enrollmentsColl).UpdateOne(uow.sctx, bson.M{"_id": e.ID}, update)
	if err != nil {
		return errors.Wrap(trapWriteConflict(err), "saving enrollment")
	}
	if res.MatchedCount == 0 {
		return enrollment.ErrNotFound
	}
	return nil
}

func (uow *unitOfWork) SaveStudent(_ context.Context, s student.Student) error {
	set := bson.M{
		"account_status": string(s.AccountStatus),
		"updated_at":     s.UpdatedAt.UTC(),
	}
	if s.LmsID != "" {
		set["lms_id"] = s.LmsID
	}
	if len(s.LmsPasswordHash) > 0 {
		set["lms_password_hash"] = s.LmsPasswordHash
	}
	res, err := uow.db.Collection(studentsColl).UpdateOne(uow.sctx, bson.M{"_id": s.ID}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errLmsIDTaken
		}
		return errors.Wrap(trapWriteConflict(err), "saving student")
	}
	if res.MatchedCount == 0 {
		return student.ErrNotFound
	}
	return nil
}

func (uow *unitOfWork) Commit() error {
	if uow.done {
		return nil
	}
	uow.done = true
	defer uow.sess.EndSession(context.Background())
	return trapWriteConflict(uow.sess.CommitTransaction(context.Background()))
}

func (uow *unitOfWork) Rollback() error {
	if uow.done {
		return nil
	}
	uow.done = true
	defer uow.sess.EndSession(context.Background())
	return uow.sess.AbortTransaction(context.Background())
}

// trapWriteConflict maps a transient transaction error (a concurrent writer
// holds the document) to enrollment.ErrLocked.
func trapWriteConflict(err error) error {
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorLabel("TransientTransactionError") {
		return enrollment.ErrLocked
	}
	return err
}
