package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"vehicle",
			"pickup_date",
			"return_date",
			"amount",
			"status",
			"payment_status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"user_id": bson.M{
				"bsonType": "string",
			},

			"vehicle": bson.M{
				"bsonType": "object",
				"required": []string{"id"},
				"properties": bson.M{
					"id": bson.M{
						"bsonType":  "string",
						"minLength": 24,
						"maxLength": 24,
					},
				},
			},

			"pickup_date": bson.M{
				"bsonType": "date",
			},

			"return_date": bson.M{
				"bsonType": "date",
			},

			"amount": bson.M{
				"bsonType": []string{"double", "int", "long", "decimal"},
				"minimum":  0,
			},

			"currency": bson.M{
				"bsonType":  "string",
				"minLength": 3,
				"maxLength": 3,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"upcoming",
					"active",
					"completed",
					"cancelled",
				},
			},

			"payment_status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"paid",
				},
			},

			"session_id": bson.M{
				"bsonType": "string",
			},

			"payment_intent_id": bson.M{
				"bsonType": "string",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
