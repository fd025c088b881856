package mongorepos

import (
	"context"
	"regexp"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/student"
)

type studentRepository struct {
	coll *mongo.Collection
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *mongo.Database) *studentRepository {
	return &studentRepository{coll: db.Collection(studentsColl)}
}

func contains(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func equalFold(s string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(s) + "$", Options: "i"}
}

func studentFilter(f student.QueryFilter) bson.M {
	filter := bson.M{}
	if f.AccountStatus != "" {
		filter["account_status"] = string(f.AccountStatus)
	}
	if f.StudentName != "" {
		re := contains(f.StudentName)
		filter["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"middle_name": re},
			bson.M{"last_name": re},
		}
	}
	if f.Email != "" {
		filter["email"] = contains(f.Email)
	}
	if f.CollegeName != "" {
		filter["college_name"] = contains(f.CollegeName)
	}
	if f.YearOfStudy != "" {
		filter["year_of_study"] = f.YearOfStudy
	}
	if f.CourseName != "" {
		filter["course_name"] = contains(f.CourseName)
	}
	return filter
}

func sortSpec(ordering []core.DBOrdering) bson.D {
	allowed := make(map[string]bool, len(student.SortFields))
	for _, field := range student.SortFields {
		allowed[field] = true
	}
	sort := make(bson.D, 0, len(ordering)+1)
	for _, ord := range ordering {
		if !allowed[ord.Field] {
			continue
		}
		dir := -1
		if ord.Ascending {
			dir = 1
		}
		sort = append(sort, bson.E{Key: ord.Field, Value: dir})
	}
	return append(sort, bson.E{Key: "_id", Value: 1})
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter student.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]student.Student, int, error) {
	f := studentFilter(filter)
	total, err := repo.coll.CountDocuments(ctx, f)
	if err != nil {
		return nil, 0, errors.Wrap(err, "counting students")
	}

	opts := options.Find().
		SetSort(sortSpec(ordering)).
		SetSkip(int64(page.Offset())).
		SetLimit(int64(page.Limit))
	cur, err := repo.coll.Find(ctx, f, opts)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying students")
	}
	var docs []studentDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, 0, errors.Wrap(err, "decoding students")
	}
	students := make([]student.Student, 0, len(docs))
	for _, d := range docs {
		students = append(students, d.toStudent())
	}
	return students, int(total), nil
}

func (repo studentRepository) GetStudent(ctx context.Context, filter student.GetFilter) (student.Student, error) {
	var f bson.M
	switch {
	case filter.ID != "":
		f = bson.M{"_id": filter.ID}
	case filter.Email != "":
		f = bson.M{"email": equalFold(filter.Email)}
	case filter.LmsID != "":
		f = bson.M{"lms_id": filter.LmsID}
	case filter.EmailOrLms != "":
		f = bson.M{"$or": bson.A{
			bson.M{"email": equalFold(filter.EmailOrLms)},
			bson.M{"lms_id": filter.EmailOrLms},
		}}
	default:
		return student.Student{}, student.ErrNotFound
	}

	var doc studentDoc
	if err := repo.coll.FindOne(ctx, f).Decode(&doc); err != nil {
		return student.Student{}, trapNoDocErr(err, student.ErrNotFound)
	}
	return doc.toStudent(), nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
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

	var doc studentDoc
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := repo.coll.FindOneAndUpdate(ctx, bson.M{"_id": s.ID}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return student.Student{}, errLmsIDTaken
		}
		return student.Student{}, trapNoDocErr(err, student.ErrNotFound)
	}
	return doc.toStudent(), nil
}
